package cartclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Julie-03/Kapee/internal/testutil"
	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/Julie-03/Kapee/pkg/session"
)

func newSession(t *testing.T, token string) *session.Store {
	t.Helper()
	s, err := session.Open(session.NewMemoryKV())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if token != "" {
		if err := s.Login(token, domain.User{ID: "user-1"}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return s
}

func TestCartRoundTrip(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddProduct("p-1", "Smart Watch", "99.90")
	backend.AddProduct("p-2", "Headphones", "45")
	token := backend.IssueToken("user-1")
	client := NewClient(backend.URL(), newSession(t, token))
	ctx := context.Background()

	if err := client.Add(ctx, "p-1", 2); err != nil {
		t.Fatalf("add p-1: %v", err)
	}
	if err := client.Add(ctx, "p-2", 1); err != nil {
		t.Fatalf("add p-2: %v", err)
	}
	if err := client.UpdateQuantity(ctx, "p-2", 4); err != nil {
		t.Fatalf("update p-2: %v", err)
	}

	lines, err := client.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	got := map[string]domain.CartLine{}
	for _, l := range lines {
		got[l.ID] = l
	}
	if got["p-1"].Quantity != 2 || got["p-1"].Title != "Smart Watch" || got["p-1"].UnitPrice.String() != "99.9" {
		t.Fatalf("unexpected p-1 line: %+v", got["p-1"])
	}
	if got["p-2"].Quantity != 4 {
		t.Fatalf("unexpected p-2 quantity: %d", got["p-2"].Quantity)
	}

	if err := client.Remove(ctx, "p-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if q := backend.ServerCart("user-1"); len(q) != 1 || q["p-2"] != 4 {
		t.Fatalf("unexpected server cart after remove: %v", q)
	}
	if err := client.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if q := backend.ServerCart("user-1"); len(q) != 0 {
		t.Fatalf("expected empty server cart, got %v", q)
	}
}

func TestAddReportsAlreadyInCart(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddProduct("p-1", "Smart Watch", "10")
	client := NewClient(backend.URL(), newSession(t, backend.IssueToken("user-1")))

	if err := client.Add(context.Background(), "p-1", 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := client.Add(context.Background(), "p-1", 1)
	if !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("expected ErrAlreadyInCart, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Product already in cart" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestAddConflictStatusIsAlreadyInCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()
	client := NewClient(srv.URL, newSession(t, "tok"))
	if err := client.Add(context.Background(), "p-1", 1); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("expected ErrAlreadyInCart for 409, got %v", err)
	}
}

func TestNoTokenFailsFastWithoutRequest(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL(), newSession(t, ""))

	calls := []struct {
		name string
		fn   func() error
	}{
		{"fetch", func() error { _, err := client.FetchAll(context.Background()); return err }},
		{"add", func() error { return client.Add(context.Background(), "p", 1) }},
		{"update", func() error { return client.UpdateQuantity(context.Background(), "p", 2) }},
		{"remove", func() error { return client.Remove(context.Background(), "p") }},
		{"clear", func() error { return client.Clear(context.Background()) }},
		{"order", func() error { _, err := client.CreateOrder(context.Background()); return err }},
	}
	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
	if backend.CartCalls() != 0 || backend.OrderCalls() != 0 {
		t.Fatalf("expected no network calls, got cart=%d order=%d", backend.CartCalls(), backend.OrderCalls())
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	backend := testutil.NewBackend(t)
	token := backend.IssueToken("user-1")
	backend.RevokeToken(token)
	sess := newSession(t, token)
	client := NewClient(backend.URL(), sess)

	err := client.Remove(context.Background(), "p-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if sess.Token() != "" {
		t.Fatalf("expected token to be cleared after 401")
	}

	before := backend.CartCalls()
	if err := client.Remove(context.Background(), "p-1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on retry, got %v", err)
	}
	if backend.CartCalls() != before {
		t.Fatalf("expected no request after token invalidation")
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL(), newSession(t, backend.IssueToken("user-1")))
	backend.FailNext(http.StatusInternalServerError)

	err := client.Clear(context.Background())
	if !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "injected failure" {
		t.Fatalf("unexpected api error: %#v", err)
	}
	if errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("500 must not be classified as already-in-cart")
	}
}

func TestUpdateMissingLineIsServerError(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL(), newSession(t, backend.IssueToken("user-1")))
	if err := client.UpdateQuantity(context.Background(), "missing", 3); !errors.Is(err, ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, newSession(t, "tok"))
	_, err := client.FetchAll(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestFetchAllSkipsDeletedProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"productId":null,"quantity":2},{"productId":{"_id":"p-1","name":"Cable","price":5.5,"imageUrl":"x.png"},"quantity":3}]}`))
	}))
	defer srv.Close()

	lines, err := NewClient(srv.URL, newSession(t, "tok")).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "p-1" || lines[0].Quantity != 3 || lines[0].ImageURL != "x.png" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestCreateOrderClearsServerCart(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddProduct("p-1", "Charger", "12.5")
	client := NewClient(backend.URL(), newSession(t, backend.IssueToken("user-1")))
	if err := client.Add(context.Background(), "p-1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	order, err := client.CreateOrder(context.Background())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID == "" || order.Total.String() != "25" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if q := backend.ServerCart("user-1"); len(q) != 0 {
		t.Fatalf("expected server cart cleared, got %v", q)
	}
}

func TestDecodeOrderShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "data envelope", raw: `{"data":{"_id":"o-1"}}`, want: "o-1"},
		{name: "order envelope", raw: `{"order":{"_id":"o-2"}}`, want: "o-2"},
		{name: "bare", raw: `{"_id":"o-3"}`, want: "o-3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order, err := decodeOrder([]byte(tc.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if order.ID != tc.want {
				t.Fatalf("order id = %q, want %q", order.ID, tc.want)
			}
		})
	}
}
