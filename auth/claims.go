package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects which of the three token flavors we are minting or
// verifying. Each kind has its own secret and lifetime.
type TokenKind string

const (
	// AccessToken authorizes API calls. Short lived, carried in the
	// Authorization header, never written to a cookie.
	AccessToken TokenKind = "access"
	// RefreshToken is the long lived credential used to mint new access
	// and session tokens. Carried only in an httpOnly cookie.
	RefreshToken TokenKind = "refresh"
	// SessionToken authorizes server rendered views. Carried only in an
	// httpOnly cookie.
	SessionToken TokenKind = "session"
)

// Cookie names for the two cookie-borne token kinds.
const (
	RefreshCookieName = "refreshToken"
	SessionCookieName = "sessionToken"
)

// Claims is the payload embedded in every token we issue.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// UserID returns the subject user's identifier.
func (c Claims) UserID() string {
	return c.UID
}
