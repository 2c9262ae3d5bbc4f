package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieWriter writes and clears the two httpOnly token cookies. The
// access token never goes through here, it only ever travels in the
// response body and the Authorization header.
type CookieWriter struct {
	// Secure marks cookies HTTPS only. Off in development so the app
	// works over plain http on localhost.
	Secure bool
}

// SetRefresh writes the refresh token cookie.
func (w CookieWriter) SetRefresh(c *fiber.Ctx, token string) {
	w.set(c, RefreshCookieName, token, RefreshTokenTTL)
}

// SetSession writes the session token cookie.
func (w CookieWriter) SetSession(c *fiber.Ctx, token string) {
	w.set(c, SessionCookieName, token, SessionTokenTTL)
}

// ClearRefresh expires the refresh token cookie.
func (w CookieWriter) ClearRefresh(c *fiber.Ctx) {
	w.del(c, RefreshCookieName)
}

// ClearSession expires the session token cookie.
func (w CookieWriter) ClearSession(c *fiber.Ctx) {
	w.del(c, SessionCookieName)
}

// ClearAll expires both token cookies.
func (w CookieWriter) ClearAll(c *fiber.Ctx) {
	w.ClearRefresh(c)
	w.ClearSession(c)
}

func (w CookieWriter) set(c *fiber.Ctx, name, val string, duration time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   w.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (w CookieWriter) del(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   w.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
