package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrMissingCredential is returned when a request carries neither a
// bearer header nor the expected cookie.
var ErrMissingCredential = goerrors.New("missing credential", goerrors.CategoryAuth).
	WithTextCode("MISSING_CREDENTIAL").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a token's embedded expiry has passed.
var ErrTokenExpired = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode("INVALID_OR_EXPIRED_TOKEN").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for any verification failure that is not
// an expiry: bad signature, wrong kind, garbage input. Callers treat it
// and ErrTokenExpired as one condition, the split exists for logging.
var ErrTokenMalformed = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode("INVALID_OR_EXPIRED_TOKEN").
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyAuthenticated rejects a login carrying a valid session.
var ErrAlreadyAuthenticated = goerrors.New("already authenticated", goerrors.CategoryConflict).
	WithTextCode("ALREADY_AUTHENTICATED").
	WithCode(goerrors.CodeBadRequest)

// ErrIdentityNotFound is the error we return when no user matches the
// login email.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithTextCode("LOOKUP_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrWrongPassword is returned when the password does not match the
// stored hash.
var ErrWrongPassword = goerrors.New("wrong password", goerrors.CategoryAuth).
	WithTextCode("WRONG_PASSWORD").
	WithCode(goerrors.CodeUnauthorized)

// ErrStoreFailure wraps any persistence-layer error. Full detail stays
// in the server log, clients only ever see a generic 500.
var ErrStoreFailure = goerrors.New("store failure", goerrors.CategoryInternal).
	WithTextCode("STORE_FAILURE").
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenInvalid will check for expired or malformed tokens
func IsTokenInvalid(err error) bool {
	return hasTextCode(err, "INVALID_OR_EXPIRED_TOKEN")
}

// IsMissingCredential will check for absent credentials
func IsMissingCredential(err error) bool {
	return hasTextCode(err, "MISSING_CREDENTIAL")
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
