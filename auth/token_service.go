package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Default lifetimes per token kind.
const (
	AccessTokenTTL  = 10 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
	SessionTokenTTL = time.Hour
)

// TokenService mints and verifies the three token kinds. Each kind is
// signed with its own HMAC secret so a token of one kind can never pass
// verification as another.
type TokenService struct {
	issuer  string
	secrets map[TokenKind][]byte
	ttls    map[TokenKind]time.Duration
	now     func() time.Time
	Logger  Logger
}

// TokenConfig carries the per-kind secrets for a TokenService.
type TokenConfig interface {
	GetIssuer() string
	GetAccessSecret() string
	GetRefreshSecret() string
	GetSessionSecret() string
}

// NewTokenService builds a TokenService from config. It errors if any
// of the three secrets is empty.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	secrets := map[TokenKind][]byte{
		AccessToken:  []byte(cfg.GetAccessSecret()),
		RefreshToken: []byte(cfg.GetRefreshSecret()),
		SessionToken: []byte(cfg.GetSessionSecret()),
	}

	for kind, secret := range secrets {
		if len(secret) == 0 {
			return nil, goerrors.New("empty signing secret", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"kind": string(kind)})
		}
	}

	return &TokenService{
		issuer:  cfg.GetIssuer(),
		secrets: secrets,
		ttls: map[TokenKind]time.Duration{
			AccessToken:  AccessTokenTTL,
			RefreshToken: RefreshTokenTTL,
			SessionToken: SessionTokenTTL,
		},
		now:    time.Now,
		Logger: defLogger{},
	}, nil
}

// WithClock overrides the service's time source. Used by tests to pin
// expiry boundaries.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL returns the configured lifetime for a token kind.
func (s *TokenService) TTL(kind TokenKind) time.Duration {
	return s.ttls[kind]
}

// Mint signs a new token of the given kind for the given user.
func (s *TokenService) Mint(kind TokenKind, userID string) (string, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return "", goerrors.New("unknown token kind", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	now := s.now()
	claims := Claims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttls[kind])),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token").
			WithTextCode("STORE_FAILURE")
	}

	return signed, nil
}

// Verify parses and validates a token of the given kind. On success the
// embedded claims are returned. Any failure maps to ErrTokenExpired or
// ErrTokenMalformed, nothing else leaks to callers.
func (s *TokenService) Verify(kind TokenKind, raw string) (*Claims, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return nil, ErrTokenMalformed
	}

	if raw == "" {
		return nil, ErrMissingCredential
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			s.Logger.Debug("token expired kind=%s", kind)
			return nil, ErrTokenExpired
		}
		s.Logger.Debug("token rejected kind=%s: %v", kind, err)
		return nil, ErrTokenMalformed
	}

	if !token.Valid || claims.UID == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
