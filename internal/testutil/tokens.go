package testutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Julie-03/Kapee/pkg/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenIssuerName = "kapee-test-backend"

type accessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"userRole,omitempty"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens the way the storefront API does and
// revokes them by jti.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]bool
}

func newTokenIssuer(ttl time.Duration) *tokenIssuer {
	return &tokenIssuer{
		secret:  []byte(randomHex(32)),
		ttl:     ttl,
		revoked: make(map[string]bool),
	}
}

func (i *tokenIssuer) issue(user domain.User, now time.Time) (string, error) {
	claims := accessClaims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuerName,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        randomHex(12),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// verify returns the subject of a valid, unrevoked token.
func (i *tokenIssuer) verify(token string) (string, error) {
	claims := accessClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuerName))
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", err
	}
	i.mu.Lock()
	revoked := i.revoked[claims.ID]
	i.mu.Unlock()
	if revoked {
		return "", errors.New("token revoked")
	}
	if claims.Subject == "" {
		return "", errors.New("token subject missing")
	}
	return claims.Subject, nil
}

func (i *tokenIssuer) revoke(token string) {
	claims := accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ID == "" {
		return
	}
	i.mu.Lock()
	i.revoked[claims.ID] = true
	i.mu.Unlock()
}

// hashPassword returns a salted hash encoded as "salt$hash".
func hashPassword(password string) string {
	salt := randomHex(8)
	h := sha256.Sum256([]byte(salt + password))
	return salt + "$" + hex.EncodeToString(h[:])
}

func checkPassword(password, stored string) bool {
	salt, sum, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	h := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(h[:]) == sum
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
