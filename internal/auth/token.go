package auth

import (
	"fmt"
	"time"

	"github.com/gatedesk/gatedesk/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService issues and validates operator session tokens.
type TokenService struct {
	cfg    config.SessionConfig
	secret []byte
}

// SessionClaims represents the claims in an operator session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// NewTokenService creates a new TokenService. The signing secret must
// be configured; there is no insecure fallback.
func NewTokenService(cfg config.SessionConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is not configured")
	}
	return &TokenService{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
	}, nil
}

// Generate creates a signed session token for an operator.
func (s *TokenService) Generate(userID, username string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.cfg.TTL)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiry, nil
}

// Validate parses and verifies a session token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
