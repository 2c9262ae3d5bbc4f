package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// ErrReauthenticate is returned when the refresh flow failed and the
// caller must log in again.
var ErrReauthenticate = errors.New("session expired, authentication required")

// Transport is an http.RoundTripper that injects the cached access
// token and, on a 401, refreshes it once through the refresh cookie
// and retries the original request a single time. A second 401 clears
// the cache and surfaces to the caller, there is no retry loop.
type Transport struct {
	// Base performs the actual requests. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	// Cache holds the access token. Required.
	Cache *TokenCache

	// RefreshURL is the absolute URL of the refresh endpoint. Required.
	RefreshURL string

	// Jar carries the refresh cookie for the refresh call. Required,
	// and must be the same jar the enclosing http.Client uses.
	Jar http.CookieJar

	// OnAuthFailure fires after a failed refresh, once per failure.
	OnAuthFailure func()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Buffer the body up front so the request can be replayed after a
	// refresh.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	t.authorize(req)

	res, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}

	// Auth endpoints answer 401 for their own reasons, wrong password
	// among them. Only API calls get the refresh treatment.
	if strings.HasPrefix(req.URL.Path, "/auth/") {
		return res, nil
	}

	// One refresh, one retry.
	res.Body.Close()

	if err := t.refresh(req); err != nil {
		t.Cache.Clear()
		if t.OnAuthFailure != nil {
			t.OnAuthFailure()
		}
		return nil, ErrReauthenticate
	}

	retry := req.Clone(req.Context())
	if body != nil {
		retry.Body = io.NopCloser(bytes.NewReader(body))
	}
	t.authorize(retry)

	res, err = t.base().RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		res.Body.Close()
		t.Cache.Clear()
		if t.OnAuthFailure != nil {
			t.OnAuthFailure()
		}
		return nil, ErrReauthenticate
	}

	return res, nil
}

func (t *Transport) authorize(req *http.Request) {
	if token := t.Cache.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// refresh calls the refresh endpoint with the jar's refresh cookie and
// stores the new access token in the cache.
func (t *Transport) refresh(orig *http.Request) error {
	req, err := http.NewRequestWithContext(orig.Context(), http.MethodPost, t.RefreshURL, nil)
	if err != nil {
		return err
	}

	if t.Jar != nil {
		for _, cookie := range t.Jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	res, err := t.base().RoundTrip(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return ErrReauthenticate
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return err
	}
	if payload.AccessToken == "" {
		return ErrReauthenticate
	}

	t.Cache.Set(payload.AccessToken)
	return nil
}
