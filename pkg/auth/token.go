package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tair/movie-review/pkg/apperror"
)

const (
	// DefaultTokenTTL is used when no TTL is configured
	DefaultTokenTTL = 24 * time.Hour

	tokenIssuer = "movie-review"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = apperror.New(apperror.KindUnauthenticated, "invalid or expired token")

// Claims is the JWT payload. The subject carries the username.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed tokens
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithClock overrides the clock used for issuing and verifying tokens
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		m.now = now
	}
}

// NewTokenManager creates a token manager with an HMAC signing key
func NewTokenManager(secretKey string, ttl time.Duration, opts ...Option) (*TokenManager, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("jwt secret key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	m := &TokenManager{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed token for username carrying roles
func (m *TokenManager) Issue(username string, roles []Role) (string, error) {
	now := m.now()
	roleClaims := make([]string, 0, len(roles))
	for _, r := range roles {
		roleClaims = append(roleClaims, string(r))
	}

	claims := &Claims{
		Roles: roleClaims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the identity
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	roles := make([]Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role, err := ParseRole(r)
		if err != nil {
			return Identity{}, ErrInvalidToken
		}
		roles = append(roles, role)
	}

	return Identity{Username: claims.Subject, Roles: roles}, nil
}
