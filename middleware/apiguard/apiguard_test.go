package apiguard_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expenso-app/expenso/auth"
	"github.com/expenso-app/expenso/middleware/apiguard"
)

type tokenConfig struct{}

func (tokenConfig) GetIssuer() string        { return "expenso-test" }
func (tokenConfig) GetAccessSecret() string  { return "access-secret" }
func (tokenConfig) GetRefreshSecret() string { return "refresh-secret" }
func (tokenConfig) GetSessionSecret() string { return "session-secret" }

func newGuardedApp(t *testing.T) (*fiber.App, *auth.TokenService) {
	t.Helper()

	tokens, err := auth.NewTokenService(tokenConfig{})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(apiguard.New(apiguard.Config{Verifier: tokens}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(apiguard.UserID(c))
	})

	return app, tokens
}

func request(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestAPIGuard(t *testing.T) {
	t.Run("valid access token passes and exposes user ID", func(t *testing.T) {
		app, tokens := newGuardedApp(t)

		access, err := tokens.Mint(auth.AccessToken, "user-123")
		require.NoError(t, err)

		res := request(t, app, "Bearer "+access)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, "user-123", string(body))
	})

	t.Run("missing header", func(t *testing.T) {
		app, _ := newGuardedApp(t)

		res := request(t, app, "")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("malformed scheme", func(t *testing.T) {
		app, tokens := newGuardedApp(t)

		access, err := tokens.Mint(auth.AccessToken, "user-123")
		require.NoError(t, err)

		res := request(t, app, "Basic "+access)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		app, _ := newGuardedApp(t)

		res := request(t, app, "Bearer garbage")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("session token is not an access token", func(t *testing.T) {
		app, tokens := newGuardedApp(t)

		session, err := tokens.Mint(auth.SessionToken, "user-123")
		require.NoError(t, err)

		res := request(t, app, "Bearer "+session)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("filter skips the guard", func(t *testing.T) {
		tokens, err := auth.NewTokenService(tokenConfig{})
		require.NoError(t, err)

		app := fiber.New()
		app.Use(apiguard.New(apiguard.Config{
			Verifier: tokens,
			Filter:   func(c *fiber.Ctx) bool { return c.Path() == "/health" },
		}))
		app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

		req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})
}
