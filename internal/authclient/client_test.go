package authclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Julie-03/Kapee/internal/testutil"
	"github.com/Julie-03/Kapee/pkg/domain"
)

func TestLogin(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddUser("u-1", "ada@example.com", "secret", domain.RoleAdmin)
	client := NewClient(backend.URL(), nil)

	user, token, err := client.Login(context.Background(), " Ada@Example.com ", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if user.ID != "u-1" || !user.IsAdmin() {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddUser("u-1", "ada@example.com", "secret", domain.RoleUser)
	client := NewClient(backend.URL(), nil)

	_, _, err := client.Login(context.Background(), "ada@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid email or password" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", nil)
	if _, _, err := client.Login(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected missing email to fail")
	}
}

func TestLoginRejectsResponseWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u-1"}}`))
	}))
	defer srv.Close()

	if _, _, err := NewClient(srv.URL, nil).Login(context.Background(), "a@example.com", "pw"); err == nil {
		t.Fatalf("expected missing token to fail")
	}
}

func TestLoginDefaultsRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"t","user":{"id":"u-1","email":"a@example.com"}}`))
	}))
	defer srv.Close()

	user, _, err := NewClient(srv.URL, nil).Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("role = %q", user.Role)
	}
}

func TestRegister(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL(), nil)

	if err := client.Register(context.Background(), "grace", "grace@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := client.Register(context.Background(), "grace", "grace@example.com", "pw"); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, _, err := client.Login(context.Background(), "grace@example.com", "pw"); err != nil {
		t.Fatalf("login after register: %v", err)
	}
}
