// Package apiguard protects JSON API routes with the access token.
// The token travels in the Authorization header only, cookies are
// never consulted here.
package apiguard

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/expenso-app/expenso/auth"
)

// DefaultContextKey is where the guard stores the authenticated user's
// ID in the request locals.
const DefaultContextKey = "userID"

// Verifier validates a raw access token and yields its claims.
type Verifier interface {
	Verify(kind auth.TokenKind, raw string) (*auth.Claims, error)
}

type Config struct {
	// Verifier is required.
	Verifier Verifier

	// Filter skips the guard for matching requests.
	Filter func(*fiber.Ctx) bool

	// ContextKey is the locals key for the user ID. Defaults to
	// DefaultContextKey.
	ContextKey string

	// AuthScheme is the expected Authorization scheme. Defaults to
	// "Bearer".
	AuthScheme string

	// ErrorHandler renders the 401 response. The default answers with
	// the same JSON envelope as the auth endpoints.
	ErrorHandler func(*fiber.Ctx, error) error
}

// New builds the guard middleware.
func New(cfg Config) fiber.Handler {
	if cfg.Verifier == nil {
		panic("apiguard: Verifier is required")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := tokenFromHeader(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.Verify(auth.AccessToken, raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims.UserID())
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

func tokenFromHeader(c *fiber.Ctx, scheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", auth.ErrMissingCredential
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", auth.ErrMissingCredential
	}

	return header[len(prefix):], nil
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	message := "Invalid or expired token"
	if auth.IsMissingCredential(err) {
		message = "Unauthenticated"
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return c.Status(richErr.Code).JSON(auth.Response{
			Success: false,
			Message: message,
		})
	}

	return c.Status(fiber.StatusUnauthorized).JSON(auth.Response{
		Success: false,
		Message: message,
	})
}
