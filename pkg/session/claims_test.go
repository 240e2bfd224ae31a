package session

import (
	"testing"
	"time"
)

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := mustSignToken(t, "user-1", exp)

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q", claims.Role)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("expiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
	if claims.Expired(time.Now()) {
		t.Fatalf("expected unexpired token")
	}
	if !claims.Expired(exp.Add(time.Second)) {
		t.Fatalf("expected token expired after exp")
	}
}

func TestParseClaimsRejectsOpaqueToken(t *testing.T) {
	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatalf("expected opaque token to fail")
	}
	if _, err := ParseClaims(""); err == nil {
		t.Fatalf("expected empty token to fail")
	}
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	if (Claims{}).Expired(time.Now()) {
		t.Fatalf("zero expiry should not be expired")
	}
}
