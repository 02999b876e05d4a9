// Package identity turns bearer tokens into caller identities.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/morezero/operation-engine/pkg/operation"
)

// ErrNoSecret is returned when a token is presented but no signing secret is configured.
var ErrNoSecret = errors.New("identity: no signing secret configured")

// Config holds token validation settings.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Audience, when set, must appear in the aud claim.
	Audience string
	// ClockSkew is the leeway applied to exp and nbf.
	ClockSkew time.Duration
	// TTL is the lifetime of generated tokens.
	TTL time.Duration
}

// Enabled reports whether tokens can be validated.
func (c Config) Enabled() bool { return len(c.Secret) > 0 }

// Claims are the engine's token claims. The subject is the caller id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Validate parses and verifies tokenString.
func Validate(tokenString string, cfg Config) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}
	if !cfg.Enabled() {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// FromToken validates tokenString and returns the caller it names.
// Tokens never produce a system identity.
func FromToken(tokenString string, cfg Config) (*operation.User, error) {
	claims, err := Validate(tokenString, cfg)
	if err != nil {
		return nil, err
	}
	return &operation.User{UserID: claims.Subject, UserRoles: claims.Roles}, nil
}

// Generate signs a token for userID with roles.
func Generate(userID string, roles []string, cfg Config) (string, error) {
	if !cfg.Enabled() {
		return "", ErrNoSecret
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
