// Package viewguard protects server rendered pages with the session
// token cookie, silently renewing expired sessions from the refresh
// token so browsers are not bounced to the login page every hour.
package viewguard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/expenso-app/expenso/auth"
)

// DefaultContextKey is where the guard stores the authenticated user's
// ID in the request locals.
const DefaultContextKey = "userID"

// Renewer is the slice of the authenticator the guard needs: session
// verification plus renewal from a refresh token.
type Renewer interface {
	Tokens() *auth.TokenService
	RenewSession(refreshToken string) (string, error)
}

type Config struct {
	// Auther is required.
	Auther Renewer

	// Cookies writes renewed session cookies.
	Cookies auth.CookieWriter

	// ContextKey is the locals key for the user ID. Defaults to
	// DefaultContextKey.
	ContextKey string

	// LoginPath is where unauthenticated browsers are sent. Defaults
	// to "/login".
	LoginPath string
}

func (cfg *Config) defaults() {
	if cfg.Auther == nil {
		panic("viewguard: Auther is required")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
}

// New builds the view guard. A valid session cookie passes. A request
// with no session cookie at all goes straight to the login page, even
// when a refresh cookie is present. A session cookie that fails
// verification falls back to the refresh cookie: when it still
// verifies we mint a fresh session cookie and let the request through,
// otherwise the rejected cookies are cleared and the browser is
// redirected to the login page.
func New(cfg Config) fiber.Handler {
	cfg.defaults()

	return func(c *fiber.Ctx) error {
		tokens := cfg.Auther.Tokens()

		raw := c.Cookies(auth.SessionCookieName)
		if raw == "" {
			return c.Redirect(cfg.LoginPath, fiber.StatusSeeOther)
		}

		if claims, err := tokens.Verify(auth.SessionToken, raw); err == nil {
			c.Locals(cfg.ContextKey, claims.UserID())
			return c.Next()
		}

		// The session cookie is present but dead, drop it.
		cfg.Cookies.ClearSession(c)

		refresh := c.Cookies(auth.RefreshCookieName)
		if refresh == "" {
			return c.Redirect(cfg.LoginPath, fiber.StatusSeeOther)
		}

		session, err := cfg.Auther.RenewSession(refresh)
		if err != nil {
			cfg.Cookies.ClearRefresh(c)
			return c.Redirect(cfg.LoginPath, fiber.StatusSeeOther)
		}

		claims, err := tokens.Verify(auth.SessionToken, session)
		if err != nil {
			cfg.Cookies.ClearRefresh(c)
			return c.Redirect(cfg.LoginPath, fiber.StatusSeeOther)
		}

		cfg.Cookies.SetSession(c, session)
		c.Locals(cfg.ContextKey, claims.UserID())
		return c.Next()
	}
}

// RedirectIfAuthenticated is the login page's inverse guard: a browser
// that already holds a valid session has no business on the login form
// and goes straight to the app.
func RedirectIfAuthenticated(cfg Config, homePath string) fiber.Handler {
	cfg.defaults()
	if homePath == "" {
		homePath = "/"
	}

	return func(c *fiber.Ctx) error {
		if raw := c.Cookies(auth.SessionCookieName); raw != "" {
			if _, err := cfg.Auther.Tokens().Verify(auth.SessionToken, raw); err == nil {
				return c.Redirect(homePath, fiber.StatusSeeOther)
			}
		}
		return c.Next()
	}
}

// UserID reads the authenticated user's ID stored by the guard.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(DefaultContextKey).(string); ok {
		return id
	}
	return ""
}
