package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Julie-03/Kapee/pkg/domain"
)

// Canonical storage keys. Absence of TokenKey means "no session".
const (
	TokenKey      = "accessToken"
	UserKey       = "user"
	LegacyUserKey = "userKey"
)

// Store holds the current bearer token and identity. It is safe for
// concurrent use; the token it reports is always the committed one.
type Store struct {
	kv  KV
	now func() time.Time

	mu    sync.RWMutex
	token string
	user  *domain.User
}

// Open restores a session from kv. A stored user record that cannot be
// decoded clears every session key.
func Open(kv KV) (*Store, error) {
	if kv == nil {
		return nil, errors.New("session storage is required")
	}
	s := &Store{kv: kv, now: time.Now}

	token, ok, err := kv.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("restore token: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		return s, nil
	}
	s.token = strings.TrimSpace(token)

	raw, ok, err := kv.Get(UserKey)
	if err != nil {
		return nil, fmt.Errorf("restore user: %w", err)
	}
	if ok {
		var user domain.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			slog.Warn("stored user is invalid, clearing session", "err", err)
			s.token = ""
			if err := kv.Delete(TokenKey, UserKey, LegacyUserKey); err != nil {
				return nil, fmt.Errorf("clear invalid session: %w", err)
			}
			return s, nil
		}
		s.user = &user
	}
	return s, nil
}

// Token returns the held bearer token, or "" when there is no session.
// A JWT whose expiry has already passed is dropped here so callers fail
// fast instead of sending a request the server will reject.
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return ""
	}
	if claims, err := ParseClaims(token); err == nil && claims.Expired(s.now()) {
		slog.Info("held token expired, dropping session")
		s.Invalidate()
		return ""
	}
	return token
}

// User returns the current identity. When no user record was stored the
// identity is derived from the token claims if possible.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()
	if token == "" {
		return domain.User{}, false
	}
	if user != nil {
		return *user, true
	}
	claims, err := ParseClaims(token)
	if err != nil || claims.Subject == "" {
		return domain.User{}, false
	}
	role := domain.UserRole(claims.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{ID: claims.Subject, Email: claims.Email, Role: role}, true
}

// IsAuthenticated reports whether a usable token is held.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Login commits token and user to memory and persistent storage. It
// returns only once the token is readable through Token.
func (s *Store) Login(token string, user domain.User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.kv.Set(UserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	slog.Info("session started", "user_id", user.ID)
	return nil
}

// Logout drops the session from memory and persistent storage.
func (s *Store) Logout() error {
	s.clear()
	if err := s.kv.Delete(TokenKey, UserKey, LegacyUserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Invalidate drops a token the server rejected. Storage errors are logged
// because the in-memory session is already gone.
func (s *Store) Invalidate() {
	s.clear()
	if err := s.kv.Delete(TokenKey, UserKey, LegacyUserKey); err != nil {
		slog.Error("clear rejected token", "err", err)
	}
	slog.Info("session invalidated")
}

func (s *Store) clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}
