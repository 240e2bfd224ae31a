package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Julie-03/Kapee/internal/util"
	"github.com/Julie-03/Kapee/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for each call. Invalidate is
// called when the server rejects the token.
type TokenSource interface {
	Token() string
	Invalidate()
}

// Client calls the cart service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a cart service client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: util.NewHTTPClient("cart", defaultTimeout),
		tokens:     tokens,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// FetchAll lists the server-persisted cart. Entries whose product has been
// deleted server-side are skipped.
func (c *Client) FetchAll(ctx context.Context) ([]domain.CartLine, error) {
	var resp listCartResponse
	if err := c.doJSON(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.Product == nil || strings.TrimSpace(item.Product.ID) == "" {
			continue
		}
		lines = append(lines, domain.CartLine{
			ProductSnapshot: item.Product.Snapshot(),
			Quantity:        item.Quantity,
		})
	}
	return lines, nil
}

// Add puts quantity units of productID in the server cart. It fails with
// ErrAlreadyInCart when the product is already present.
func (c *Client) Add(ctx context.Context, productID string, quantity int) error {
	payload := map[string]any{"productId": productID, "quantity": quantity}
	err := c.doJSON(ctx, http.MethodPost, "/cart/add", payload, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && alreadyInCart(apiErr) {
		apiErr.kind = ErrAlreadyInCart
	}
	return err
}

// UpdateQuantity sets the quantity of an existing server cart line.
func (c *Client) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	payload := map[string]int{"quantity": quantity}
	return c.doJSON(ctx, http.MethodPut, "/cart/update/"+url.PathEscape(productID), payload, nil)
}

// Remove deletes a line from the server cart.
func (c *Client) Remove(ctx context.Context, productID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(productID), nil, nil)
}

// Clear empties the server cart.
func (c *Client) Clear(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}

// CreateOrder turns the server cart into an order. The server clears the
// cart as a side effect.
func (c *Client) CreateOrder(ctx context.Context) (domain.Order, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/order", nil, &raw); err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(raw)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		return ErrUnauthenticated
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(util.EnsureRequestID(ctx), method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Code    string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		apiErr := newAPIError(resp.StatusCode, msg, errResp.Code)
		if errors.Is(apiErr, ErrUnauthorized) && c.tokens != nil {
			c.tokens.Invalidate()
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s response: %w", ErrServer, path, err)
	}
	return nil
}

func decodeOrder(raw json.RawMessage) (domain.Order, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Order{}, nil
	}
	var envelope struct {
		Data  *domain.Order `json:"data"`
		Order *domain.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.Order{}, fmt.Errorf("%w: decode order: %w", ErrServer, err)
	}
	switch {
	case envelope.Data != nil:
		return *envelope.Data, nil
	case envelope.Order != nil:
		return *envelope.Order, nil
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, fmt.Errorf("%w: decode order: %w", ErrServer, err)
	}
	return order, nil
}

type listCartResponse struct {
	Data []cartItem `json:"data"`
}

type cartItem struct {
	Product  *domain.Product `json:"productId"`
	Quantity int             `json:"quantity"`
}
