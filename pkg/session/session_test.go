package session

import (
	"testing"
	"time"

	"github.com/Julie-03/Kapee/pkg/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

func mustSignToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: subject + "@example.com",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestOpenEmptyStorageHasNoSession(t *testing.T) {
	s, err := Open(NewMemoryKV())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("expected no token")
	}
	if s.IsAuthenticated() {
		t.Fatalf("expected unauthenticated")
	}
	if _, ok := s.User(); ok {
		t.Fatalf("expected no user")
	}
}

func TestLoginPersistsAndReopenRestores(t *testing.T) {
	kv := NewMemoryKV()
	s, err := Open(kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	user := domain.User{ID: "u-1", Email: "a@example.com", Role: domain.RoleUser}
	if err := s.Login("opaque-token", user); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := s.Token(); got != "opaque-token" {
		t.Fatalf("token = %q", got)
	}

	reopened, err := Open(kv)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Token(); got != "opaque-token" {
		t.Fatalf("restored token = %q", got)
	}
	got, ok := reopened.User()
	if !ok || got.ID != "u-1" || got.Email != "a@example.com" {
		t.Fatalf("restored user = %+v, ok=%v", got, ok)
	}
}

func TestOpenClearsInvalidStoredUser(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Set(TokenKey, "tok")
	_ = kv.Set(UserKey, "{not json")
	_ = kv.Set(LegacyUserKey, "legacy")

	s, err := Open(kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("expected token to be cleared")
	}
	for _, key := range []string{TokenKey, UserKey, LegacyUserKey} {
		if _, ok, _ := kv.Get(key); ok {
			t.Fatalf("expected %s to be deleted", key)
		}
	}
}

func TestLogoutClearsStorage(t *testing.T) {
	kv := NewMemoryKV()
	s, _ := Open(kv)
	if err := s.Login("tok", domain.User{ID: "u-1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("expected no token after logout")
	}
	if _, ok, _ := kv.Get(TokenKey); ok {
		t.Fatalf("expected token key removed")
	}
}

func TestInvalidateDropsToken(t *testing.T) {
	kv := NewMemoryKV()
	s, _ := Open(kv)
	_ = s.Login("tok", domain.User{ID: "u-1"})
	s.Invalidate()
	if s.Token() != "" {
		t.Fatalf("expected token cleared")
	}
	if _, ok, _ := kv.Get(TokenKey); ok {
		t.Fatalf("expected persisted token removed")
	}
}

func TestExpiredJWTIsTreatedAsNoSession(t *testing.T) {
	kv := NewMemoryKV()
	s, _ := Open(kv)
	expired := mustSignToken(t, "u-1", time.Now().Add(-time.Minute))
	if err := s.Login(expired, domain.User{ID: "u-1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("expected expired token to be dropped")
	}
	if _, ok, _ := kv.Get(TokenKey); ok {
		t.Fatalf("expected expired token removed from storage")
	}
}

func TestUserDerivedFromClaimsWhenRecordMissing(t *testing.T) {
	kv := NewMemoryKV()
	token := mustSignToken(t, "u-9", time.Now().Add(time.Hour))
	_ = kv.Set(TokenKey, token)

	s, err := Open(kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	user, ok := s.User()
	if !ok {
		t.Fatalf("expected user from claims")
	}
	if user.ID != "u-9" || user.Email != "u-9@example.com" || !user.IsAdmin() {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginRequiresToken(t *testing.T) {
	s, _ := Open(NewMemoryKV())
	if err := s.Login("  ", domain.User{ID: "u-1"}); err == nil {
		t.Fatalf("expected empty token to fail")
	}
}
