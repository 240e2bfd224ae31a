package catalogclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Julie-03/Kapee/internal/util"
	"github.com/Julie-03/Kapee/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

const maxParallelFetches = 4

// Client reads the public product catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a catalog error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a catalog client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = util.NewHTTPClient("catalog", 10*time.Second)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List returns every product.
func (c *Client) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.get(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get returns one product.
func (c *Client) Get(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, errors.New("product id required")
	}
	var p domain.Product
	if err := c.get(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// GetMany fetches several products concurrently, preserving input order.
// The first failure cancels the remaining fetches.
func (c *Client) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	out := make([]domain.Product, len(ids))
	g, gctx := errgroup.WithContext(util.EnsureRequestID(ctx))
	g.SetLimit(maxParallelFetches)
	for i, id := range ids {
		g.Go(func() error {
			p, err := c.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("product %s: %w", id, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(util.EnsureRequestID(ctx), http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
