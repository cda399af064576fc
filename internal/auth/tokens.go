package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims carried by issued tokens. The subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"typ"`
}

// UserID returns the user the token was issued to.
func (c Claims) UserID() string {
	return c.Subject
}

// TokenConfig holds the signing secrets and lifetimes for both token classes.
type TokenConfig struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// TokenService issues and verifies HS256-signed access and refresh tokens.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService constructs a TokenService. Both secrets must be non-empty.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * 24 * time.Hour
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// WithNowFunc allows tests to override the time source.
func (s *TokenService) WithNowFunc(now func() time.Time) {
	s.now = now
}

// IssueAccessToken signs a short-lived access token for userID.
func (s *TokenService) IssueAccessToken(userID string) (string, time.Time, error) {
	return s.issue(userID, TokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for userID.
func (s *TokenService) IssueRefreshToken(userID string) (string, time.Time, error) {
	return s.issue(userID, TokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *TokenService) issue(userID string, typ TokenType, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}

	now := s.now().UTC()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: typ,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}

	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of token against secret. Any failure
// is reported as ErrInvalidToken.
func (s *TokenService) Verify(token string, secret []byte) (Claims, error) {
	claims := Claims{}

	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// VerifyAccess verifies an access token.
func (s *TokenService) VerifyAccess(token string) (Claims, error) {
	return s.verifyType(token, s.cfg.AccessSecret, TokenTypeAccess)
}

// VerifyRefresh verifies a refresh token.
func (s *TokenService) VerifyRefresh(token string) (Claims, error) {
	return s.verifyType(token, s.cfg.RefreshSecret, TokenTypeRefresh)
}

func (s *TokenService) verifyType(token string, secret []byte, want TokenType) (Claims, error) {
	claims, err := s.Verify(token, secret)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != want {
		return Claims{}, fmt.Errorf("%w: expected %s token", ErrInvalidToken, want)
	}
	return claims, nil
}
