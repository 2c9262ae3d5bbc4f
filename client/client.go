package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/expenso-app/expenso/store"
)

// Client talks to the expenso server. The cookie jar carries the
// refresh and session cookies, the token cache carries the access
// token.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *TokenCache
}

// New builds a Client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	cache := &TokenCache{}
	c := &Client{
		baseURL: baseURL,
		cache:   cache,
	}

	c.http = &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		Transport: &Transport{
			Cache:      cache,
			RefreshURL: baseURL + "/auth/refresh",
			Jar:        jar,
		},
	}

	return c, nil
}

// authResponse mirrors the server's auth envelope.
type authResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	var out authResponse
	status, err := c.post(ctx, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}

	if status != http.StatusCreated {
		return fmt.Errorf("register failed: %s", out.Message)
	}
	return nil
}

// Login authenticates and primes the token cache and cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out authResponse
	status, err := c.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}

	if status != http.StatusOK || out.AccessToken == "" {
		return fmt.Errorf("login failed: %s", out.Message)
	}

	c.cache.Set(out.AccessToken)
	return nil
}

// Refresh trades the refresh cookie for a fresh access token. The
// transport already does this on demand, but callers can refresh
// eagerly, for example after restoring a persisted cookie jar.
func (c *Client) Refresh(ctx context.Context) error {
	var out authResponse
	status, err := c.post(ctx, "/auth/refresh", nil, &out)
	if err != nil {
		return err
	}

	if status != http.StatusOK || out.AccessToken == "" {
		c.cache.Clear()
		return fmt.Errorf("refresh failed: %s", out.Message)
	}

	c.cache.Set(out.AccessToken)
	return nil
}

// Logout drops the server cookies and the cached access token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "/auth/logout", nil, nil)
	c.cache.Clear()
	return err
}

// ListExpenses fetches the caller's expenses, optionally filtered by
// category.
func (c *Client) ListExpenses(ctx context.Context, category string) ([]*store.Expense, error) {
	path := "/api/expenses"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var out struct {
		Expenses []*store.Expense `json:"expenses"`
	}
	if _, err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// CreateExpense records a new expense.
func (c *Client) CreateExpense(ctx context.Context, category string, cost float64, description string, purchasedAt time.Time) (*store.Expense, error) {
	var out struct {
		Expense *store.Expense `json:"expense"`
	}

	payload := map[string]any{
		"category":    category,
		"cost":        cost,
		"description": description,
	}
	if !purchasedAt.IsZero() {
		payload["purchased_at"] = purchasedAt
	}

	status, err := c.post(ctx, "/api/expenses", payload, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("create expense failed with status %d", status)
	}
	return out.Expense, nil
}

// DeleteExpense removes an expense by id.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/expenses/"+id, nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("delete expense failed with status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return res.StatusCode, err
		}
	}

	return res.StatusCode, nil
}
