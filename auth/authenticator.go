package auth

import (
	"context"

	"github.com/expenso-app/expenso/store"
)

// UserStore is the slice of the persistence layer the authenticator
// needs. The users repository satisfies it.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*store.User, error)
}

// TokenBundle is everything a successful login produces. The caller
// decides which pieces go to cookies and which to the response body.
type TokenBundle struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	SessionToken string
}

// Authenticator implements the credential side of the auth flows:
// password verification on login, and minting new short lived tokens
// from a refresh token.
type Authenticator struct {
	users    UserStore
	tokens   *TokenService
	logger   Logger
	recorder Recorder
}

// NewAuthenticator wires an Authenticator over a user store and a
// token service.
func NewAuthenticator(users UserStore, tokens *TokenService) *Authenticator {
	return &Authenticator{
		users:    users,
		tokens:   tokens,
		logger:   defLogger{},
		recorder: noopRecorder{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *Authenticator) WithRecorder(recorder Recorder) *Authenticator {
	a.recorder = normalizeRecorder(recorder)
	return a
}

// Tokens exposes the underlying TokenService for guards that only need
// verification.
func (a *Authenticator) Tokens() *TokenService {
	return a.tokens
}

// Login verifies the email and password and mints the full token
// bundle. Unknown emails and wrong passwords surface as distinct
// errors so the HTTP layer can map them to different statuses.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*TokenBundle, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			a.logger.Debug("Login unknown email %s", email)
			a.recorder.RecordLoginFailure("not_found")
			return nil, ErrIdentityNotFound
		}
		// The cause stays in the log, callers get the generic sentinel.
		a.logger.Error("Login user lookup failed: %v", err)
		a.recorder.RecordLoginFailure("store")
		return nil, ErrStoreFailure
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		a.logger.Debug("Login password mismatch for %s", email)
		a.recorder.RecordLoginFailure("password")
		return nil, ErrWrongPassword
	}

	bundle, err := a.mintBundle(user.ID.String())
	if err != nil {
		a.recorder.RecordLoginFailure("mint")
		return nil, err
	}

	a.recorder.RecordLoginSuccess()
	return bundle, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is never rotated.
func (a *Authenticator) Refresh(refreshToken string) (string, error) {
	claims, err := a.tokens.Verify(RefreshToken, refreshToken)
	if err != nil {
		a.recorder.RecordVerifyFailure(RefreshToken)
		return "", err
	}

	access, err := a.tokens.Mint(AccessToken, claims.UserID())
	if err != nil {
		return "", err
	}

	a.recorder.RecordRefresh()
	return access, nil
}

// RenewSession exchanges a valid refresh token for a new session
// token. The view guard uses it to keep browser sessions alive without
// bouncing users to the login page.
func (a *Authenticator) RenewSession(refreshToken string) (string, error) {
	claims, err := a.tokens.Verify(RefreshToken, refreshToken)
	if err != nil {
		a.recorder.RecordVerifyFailure(RefreshToken)
		return "", err
	}

	session, err := a.tokens.Mint(SessionToken, claims.UserID())
	if err != nil {
		return "", err
	}

	a.recorder.RecordSessionRenewal()
	return session, nil
}

func (a *Authenticator) mintBundle(userID string) (*TokenBundle, error) {
	bundle := &TokenBundle{UserID: userID}

	var err error
	if bundle.AccessToken, err = a.tokens.Mint(AccessToken, userID); err != nil {
		return nil, err
	}
	if bundle.RefreshToken, err = a.tokens.Mint(RefreshToken, userID); err != nil {
		return nil, err
	}
	if bundle.SessionToken, err = a.tokens.Mint(SessionToken, userID); err != nil {
		return nil, err
	}

	return bundle, nil
}
