package catalogclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Julie-03/Kapee/internal/testutil"
)

func TestListAndGet(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddProduct("p-1", "Smart Watch", "199.99")
	backend.AddProduct("p-2", "Earbuds", "35")
	client := NewClient(backend.URL(), nil)

	products, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	p, err := client.Get(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	snap := p.Snapshot()
	if snap.ID != "p-1" || snap.Title != "Smart Watch" || snap.UnitPrice.String() != "199.99" || snap.ImageURL == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestGetMissingProduct(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL(), nil)
	if _, err := client.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.Get(context.Background(), " "); err == nil {
		t.Fatalf("expected empty id to fail")
	}
}

func TestGetManyPreservesOrder(t *testing.T) {
	backend := testutil.NewBackend(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		backend.AddProduct(id, "Product "+id, "1")
	}
	client := NewClient(backend.URL(), nil)

	ids := []string{"e", "a", "c", "b", "d"}
	products, err := client.GetMany(context.Background(), ids)
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	for i, id := range ids {
		if products[i].ID != id {
			t.Fatalf("products[%d] = %q, want %q", i, products[i].ID, id)
		}
	}
}

func TestGetManyFailsOnMissing(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddProduct("a", "A", "1")
	client := NewClient(backend.URL(), nil)
	if _, err := client.GetMany(context.Background(), []string{"a", "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).List(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected error: %v", err)
	}
}
