package session

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the client reads.
// The signature is never checked here; the backend is the verifier.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"userRole"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT access token without verifying it.
// Opaque (non-JWT) tokens return an error.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("token is empty")
	}
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, err
	}
	claims := Claims{
		Subject: strings.TrimSpace(tc.Subject),
		Email:   strings.TrimSpace(tc.Email),
		Role:    strings.TrimSpace(tc.Role),
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

// Expired reports whether the token carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
