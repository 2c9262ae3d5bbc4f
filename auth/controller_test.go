package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/expenso-app/expenso/auth"
	"github.com/expenso-app/expenso/middleware/apiguard"
	"github.com/expenso-app/expenso/store"
)

type controllerFixture struct {
	app    *fiber.App
	tokens *auth.TokenService
	users  *MockUserStore
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	tokens := newTestService(t)
	users := &MockUserStore{}
	auther := auth.NewAuthenticator(users, tokens)

	db, err := store.OpenDB("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))

	register := auth.NewRegisterUserHandler(store.NewRepositoryManager(db), bcrypt.MinCost)

	controller := auth.NewController(auther, register, auth.CookieWriter{})

	app := fiber.New()
	guard := apiguard.New(apiguard.Config{Verifier: tokens})
	controller.RegisterRoutes(app.Group("/auth"), guard)

	return &controllerFixture{app: app, tokens: tokens, users: users}
}

func postJSON(t *testing.T, app *fiber.App, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func decodeResponse(t *testing.T, res *http.Response) auth.Response {
	t.Helper()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var payload auth.Response
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func responseCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestController_Register(t *testing.T) {
	fix := newControllerFixture(t)

	t.Run("creates a user", func(t *testing.T) {
		res := postJSON(t, fix.app, "/auth/register",
			`{"name":"Ada","email":"ada@example.com","password":"hunter2secret"}`)

		assert.Equal(t, fiber.StatusCreated, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.True(t, payload.Success)
	})

	t.Run("duplicate email gets a generic failure", func(t *testing.T) {
		res := postJSON(t, fix.app, "/auth/register",
			`{"name":"Ada","email":"ada@example.com","password":"hunter2secret"}`)

		assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.False(t, payload.Success)
		assert.NotContains(t, payload.Message, "ada@example.com")
	})

	t.Run("invalid payload", func(t *testing.T) {
		res := postJSON(t, fix.app, "/auth/register",
			`{"name":"Ada","email":"not-an-email","password":"short"}`)

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})
}

func TestController_Login(t *testing.T) {
	t.Run("valid credentials set both cookies and return access token", func(t *testing.T) {
		fix := newControllerFixture(t)
		user := testUser(t, "ada@example.com", "hunter2secret")
		fix.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ada@example.com","password":"hunter2secret"}`)

		require.Equal(t, fiber.StatusOK, res.StatusCode)

		payload := decodeResponse(t, res)
		assert.True(t, payload.Success)
		require.NotEmpty(t, payload.AccessToken)

		claims, err := fix.tokens.Verify(auth.AccessToken, payload.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())

		refresh := responseCookie(res, auth.RefreshCookieName)
		require.NotNil(t, refresh)
		assert.True(t, refresh.HttpOnly)
		_, err = fix.tokens.Verify(auth.RefreshToken, refresh.Value)
		assert.NoError(t, err)

		session := responseCookie(res, auth.SessionCookieName)
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)
		_, err = fix.tokens.Verify(auth.SessionToken, session.Value)
		assert.NoError(t, err)
	})

	t.Run("existing session rejects a second login", func(t *testing.T) {
		fix := newControllerFixture(t)

		session, err := fix.tokens.Mint(auth.SessionToken, "user-123")
		require.NoError(t, err)

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ada@example.com","password":"hunter2secret"}`,
			&http.Cookie{Name: auth.SessionCookieName, Value: session})

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.Equal(t, "Already authenticated", payload.Message)
	})

	t.Run("expired session cookie does not block login", func(t *testing.T) {
		fix := newControllerFixture(t)
		user := testUser(t, "ada@example.com", "hunter2secret")
		fix.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ada@example.com","password":"hunter2secret"}`,
			&http.Cookie{Name: auth.SessionCookieName, Value: "expired-or-garbage"})

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("unknown email", func(t *testing.T) {
		fix := newControllerFixture(t)
		fix.users.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, repository.NewRecordNotFound())

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ghost@example.com","password":"whatever"}`)

		assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.Equal(t, "Invalid login attempt", payload.Message)
	})

	t.Run("store failure answers generically", func(t *testing.T) {
		fix := newControllerFixture(t)
		fix.users.On("GetByEmail", mock.Anything, "ada@example.com").
			Return(nil, assert.AnError)

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ada@example.com","password":"hunter2secret"}`)

		assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.Equal(t, "Could not process login", payload.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		fix := newControllerFixture(t)
		user := testUser(t, "ada@example.com", "hunter2secret")
		fix.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)

		res := postJSON(t, fix.app, "/auth/login",
			`{"email":"ada@example.com","password":"wrong"}`)

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.Equal(t, "Invalid login attempt", payload.Message)
	})
}

func TestController_Logout(t *testing.T) {
	t.Run("clears both cookies", func(t *testing.T) {
		fix := newControllerFixture(t)

		access, err := fix.tokens.Mint(auth.AccessToken, "user-123")
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodPost, "/auth/logout", strings.NewReader(`{}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)

		res, err := fix.app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		// Both cookies come back expired so the browser drops them.
		for _, name := range []string{auth.RefreshCookieName, auth.SessionCookieName} {
			cookie := responseCookie(res, name)
			require.NotNil(t, cookie, name)
			assert.Empty(t, cookie.Value)
		}
	})

	t.Run("requires a bearer token", func(t *testing.T) {
		fix := newControllerFixture(t)

		res := postJSON(t, fix.app, "/auth/logout", `{}`)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}

func TestController_Refresh(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		fix := newControllerFixture(t)

		res := postJSON(t, fix.app, "/auth/refresh", `{}`)

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		payload := decodeResponse(t, res)
		assert.Equal(t, "Unauthenticated", payload.Message)
	})

	t.Run("invalid cookie clears only the refresh cookie", func(t *testing.T) {
		fix := newControllerFixture(t)

		res := postJSON(t, fix.app, "/auth/refresh", `{}`,
			&http.Cookie{Name: auth.RefreshCookieName, Value: "garbage"})

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

		cookie := responseCookie(res, auth.RefreshCookieName)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)

		// A still valid browser session survives a bad refresh token.
		assert.Nil(t, responseCookie(res, auth.SessionCookieName))
	})

	t.Run("valid cookie mints a fresh access token", func(t *testing.T) {
		fix := newControllerFixture(t)

		refresh, err := fix.tokens.Mint(auth.RefreshToken, "user-123")
		require.NoError(t, err)

		res := postJSON(t, fix.app, "/auth/refresh", `{}`,
			&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})

		require.Equal(t, fiber.StatusOK, res.StatusCode)
		payload := decodeResponse(t, res)
		require.NotEmpty(t, payload.AccessToken)

		claims, err := fix.tokens.Verify(auth.AccessToken, payload.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())

		// No refresh token rotation, the cookie is left alone.
		assert.Nil(t, responseCookie(res, auth.RefreshCookieName))
	})
}
