// Package jwt implements the identity authenticator on signed JWTs.
package jwt

import (
	"fmt"
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator issues and validates HMAC-signed access tokens carrying
// the actor's id, name and role.
type Authenticator struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
}

// New creates a JWT authenticator.
func New(secret string, issuer string, accessTTL time.Duration) *Authenticator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Authenticator{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
	}
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a signed access token for the user.
func (a *Authenticator) GenerateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: user.Name,
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and verifies an access token, returning the
// actor it encodes.
func (a *Authenticator) ValidateAccessToken(tokenString string) (domain.Actor, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return domain.Actor{}, fmt.Errorf("token is not valid")
	}

	role := domain.Role(c.Role)
	if !role.IsValid() {
		return domain.Actor{}, fmt.Errorf("unknown role %q in token", c.Role)
	}

	return domain.Actor{
		ID:   c.Subject,
		Name: c.Name,
		Role: role,
	}, nil
}
