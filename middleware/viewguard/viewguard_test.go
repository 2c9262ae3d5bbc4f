package viewguard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenso-app/expenso/auth"
	"github.com/expenso-app/expenso/middleware/viewguard"
)

type tokenConfig struct{}

func (tokenConfig) GetIssuer() string        { return "expenso-test" }
func (tokenConfig) GetAccessSecret() string  { return "access-secret" }
func (tokenConfig) GetRefreshSecret() string { return "refresh-secret" }
func (tokenConfig) GetSessionSecret() string { return "session-secret" }

type fixture struct {
	app    *fiber.App
	tokens *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenService(tokenConfig{})
	require.NoError(t, err)

	auther := auth.NewAuthenticator(nil, tokens)
	cfg := viewguard.Config{Auther: auther}

	app := fiber.New()
	app.Get("/login", viewguard.RedirectIfAuthenticated(cfg, "/"), func(c *fiber.Ctx) error {
		return c.SendString("login form")
	})
	app.Use(viewguard.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("hello " + viewguard.UserID(c))
	})

	return &fixture{app: app, tokens: tokens}
}

func (f *fixture) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := f.app.Test(req)
	require.NoError(t, err)
	return res
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionCookie(res *http.Response) *http.Cookie {
	return cookieByName(res, auth.SessionCookieName)
}

func assertCleared(t *testing.T, cookie *http.Cookie) {
	t.Helper()
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

func TestViewGuard(t *testing.T) {
	t.Run("valid session passes through", func(t *testing.T) {
		fix := newFixture(t)

		session, err := fix.tokens.Mint(auth.SessionToken, "user-123")
		require.NoError(t, err)

		res := fix.get(t, "/", &http.Cookie{Name: auth.SessionCookieName, Value: session})
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		// No renewal happened, no new cookie.
		assert.Nil(t, sessionCookie(res))
	})

	t.Run("no cookies redirects to login", func(t *testing.T) {
		fix := newFixture(t)

		res := fix.get(t, "/")
		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get(fiber.HeaderLocation))
	})

	t.Run("expired session with valid refresh renews silently", func(t *testing.T) {
		fix := newFixture(t)

		past := time.Now().Add(-2 * auth.SessionTokenTTL)
		fix.tokens.WithClock(func() time.Time { return past })
		expired, err := fix.tokens.Mint(auth.SessionToken, "user-123")
		require.NoError(t, err)

		fix.tokens.WithClock(time.Now)
		refresh, err := fix.tokens.Mint(auth.RefreshToken, "user-123")
		require.NoError(t, err)

		res := fix.get(t, "/",
			&http.Cookie{Name: auth.SessionCookieName, Value: expired},
			&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})

		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		renewed := sessionCookie(res)
		require.NotNil(t, renewed)
		claims, err := fix.tokens.Verify(auth.SessionToken, renewed.Value)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
	})

	t.Run("missing session redirects even with valid refresh", func(t *testing.T) {
		fix := newFixture(t)

		refresh, err := fix.tokens.Mint(auth.RefreshToken, "user-123")
		require.NoError(t, err)

		// Renewal is reserved for a present but rejected session
		// cookie. A browser that never had one goes to the login page.
		res := fix.get(t, "/", &http.Cookie{Name: auth.RefreshCookieName, Value: refresh})
		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get(fiber.HeaderLocation))
	})

	t.Run("expired session with invalid refresh redirects and clears cookies", func(t *testing.T) {
		fix := newFixture(t)

		res := fix.get(t, "/",
			&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"},
			&http.Cookie{Name: auth.RefreshCookieName, Value: "also garbage"})

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get(fiber.HeaderLocation))

		assertCleared(t, cookieByName(res, auth.SessionCookieName))
		assertCleared(t, cookieByName(res, auth.RefreshCookieName))
	})

	t.Run("expired session without refresh clears the session cookie", func(t *testing.T) {
		fix := newFixture(t)

		res := fix.get(t, "/", &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})
		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get(fiber.HeaderLocation))

		assertCleared(t, cookieByName(res, auth.SessionCookieName))
	})
}

func TestRedirectIfAuthenticated(t *testing.T) {
	t.Run("valid session skips the login page", func(t *testing.T) {
		fix := newFixture(t)

		session, err := fix.tokens.Mint(auth.SessionToken, "user-123")
		require.NoError(t, err)

		res := fix.get(t, "/login", &http.Cookie{Name: auth.SessionCookieName, Value: session})
		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/", res.Header.Get(fiber.HeaderLocation))
	})

	t.Run("no session renders the login page", func(t *testing.T) {
		fix := newFixture(t)

		res := fix.get(t, "/login")
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("expired session renders the login page", func(t *testing.T) {
		fix := newFixture(t)

		res := fix.get(t, "/login", &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})
}
