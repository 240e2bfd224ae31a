package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/shopspring/decimal"
)

// Backend is an in-memory stand-in for the storefront REST API. Carts are
// kept per user and survive logout, like the real service.
type Backend struct {
	Server *httptest.Server

	t      testing.TB
	tokens *tokenIssuer

	cartCalls  atomic.Int64
	orderCalls atomic.Int64

	mu        sync.Mutex
	products  map[string]domain.Product
	users     map[string]backendUser // email -> user
	carts     map[string][]cartEntry // user ID -> lines
	failures  []int
	nextOrder int
}

type backendUser struct {
	user         domain.User
	passwordHash string
}

type cartEntry struct {
	productID string
	quantity  int
}

// NewBackend starts a fake backend that is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		t:        t,
		tokens:   newTokenIssuer(time.Hour),
		products: make(map[string]domain.Product),
		users:    make(map[string]backendUser),
		carts:    make(map[string][]cartEntry),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api_v1/user/login", b.handleLogin)
	mux.HandleFunc("POST /api_v1/user/userRegistration", b.handleRegister)
	mux.HandleFunc("GET /products", b.handleListProducts)
	mux.HandleFunc("GET /products/{id}", b.handleGetProduct)
	mux.HandleFunc("GET /cart", b.cart(b.handleListCart))
	mux.HandleFunc("POST /cart/add", b.cart(b.handleAdd))
	mux.HandleFunc("PUT /cart/update/{id}", b.cart(b.handleUpdate))
	mux.HandleFunc("DELETE /cart/remove/{id}", b.cart(b.handleRemove))
	mux.HandleFunc("DELETE /cart/clear", b.cart(b.handleClear))
	mux.HandleFunc("POST /order", b.order(b.handleCreateOrder))
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddProduct registers a catalog product.
func (b *Backend) AddProduct(id, name, price string) domain.Product {
	p := domain.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		ImageURL: "https://img.example.com/" + id + ".png",
		Category: "electronics",
	}
	b.mu.Lock()
	b.products[id] = p
	b.mu.Unlock()
	return p
}

// AddUser registers a user that can log in with email/password.
func (b *Backend) AddUser(id, email, password string, role domain.UserRole) domain.User {
	u := domain.User{ID: id, Email: email, Role: role, Username: strings.Split(email, "@")[0]}
	b.mu.Lock()
	b.users[email] = backendUser{user: u, passwordHash: hashPassword(password)}
	b.mu.Unlock()
	return u
}

// IssueToken returns a signed bearer token accepted for userID.
func (b *Backend) IssueToken(userID string) string {
	return b.issueAt(userID, time.Now())
}

// IssueExpiredToken returns a correctly signed token whose expiry has passed.
func (b *Backend) IssueExpiredToken(userID string) string {
	return b.issueAt(userID, time.Now().Add(-2*b.tokens.ttl))
}

// RevokeToken makes the backend answer 401 for token.
func (b *Backend) RevokeToken(token string) {
	b.tokens.revoke(token)
}

// SeedCart sets the server-side cart of userID.
func (b *Backend) SeedCart(userID string, quantities map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := make([]cartEntry, 0, len(quantities))
	for id, qty := range quantities {
		entries = append(entries, cartEntry{productID: id, quantity: qty})
	}
	b.carts[userID] = entries
}

// ServerCart returns productID -> quantity for userID.
func (b *Backend) ServerCart(userID string) map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int)
	for _, e := range b.carts[userID] {
		out[e.productID] = e.quantity
	}
	return out
}

// FailNext makes the next cart/order requests answer with the given
// statuses, one per request, before normal handling resumes.
func (b *Backend) FailNext(statuses ...int) {
	b.mu.Lock()
	b.failures = append(b.failures, statuses...)
	b.mu.Unlock()
}

// CartCalls returns how many cart endpoint requests were received.
func (b *Backend) CartCalls() int64 {
	return b.cartCalls.Load()
}

// OrderCalls returns how many order requests were received.
func (b *Backend) OrderCalls() int64 {
	return b.orderCalls.Load()
}

func (b *Backend) issueAt(userID string, now time.Time) string {
	b.t.Helper()
	user := domain.User{ID: userID, Role: domain.RoleUser}
	b.mu.Lock()
	for _, u := range b.users {
		if u.user.ID == userID {
			user = u.user
			break
		}
	}
	b.mu.Unlock()
	token, err := b.tokens.issue(user, now)
	if err != nil {
		b.t.Fatalf("issue token: %v", err)
	}
	return token
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (b *Backend) cart(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.cartCalls.Add(1)
		b.authed(next)(w, r)
	}
}

func (b *Backend) order(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.orderCalls.Add(1)
		b.authed(next)(w, r)
	}
}

func (b *Backend) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		if len(b.failures) > 0 {
			status := b.failures[0]
			b.failures = b.failures[1:]
			b.mu.Unlock()
			writeMessage(w, status, "injected failure")
			return
		}
		b.mu.Unlock()
		userID, err := b.tokens.verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		next(w, r, userID)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok || !checkPassword(req.Password, u.passwordHash) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := b.tokens.issue(u.user, time.Now())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u.user})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password required")
		return
	}
	b.mu.Lock()
	if _, exists := b.users[req.Email]; exists {
		b.mu.Unlock()
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}
	u := domain.User{ID: fmt.Sprintf("user-%d", len(b.users)+1), Email: req.Email, Role: domain.RoleUser, Username: req.Username}
	b.users[req.Email] = backendUser{user: u, passwordHash: hashPassword(req.Password)}
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered", "user": u})
}

func (b *Backend) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]map[string]any, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, productJSON(p))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.products[r.PathValue("id")]
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, productJSON(p))
}

func (b *Backend) handleListCart(w http.ResponseWriter, _ *http.Request, userID string) {
	b.mu.Lock()
	data := make([]map[string]any, 0, len(b.carts[userID]))
	for _, e := range b.carts[userID] {
		var product any
		if p, ok := b.products[e.productID]; ok {
			product = productJSON(p)
		}
		data = append(data, map[string]any{"productId": product, "quantity": e.quantity})
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (b *Backend) handleAdd(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeMessage(w, http.StatusBadRequest, "productId required")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[req.ProductID]; !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	for _, e := range b.carts[userID] {
		if e.productID == req.ProductID {
			writeMessage(w, http.StatusBadRequest, "Product already in cart")
			return
		}
	}
	b.carts[userID] = append(b.carts[userID], cartEntry{productID: req.ProductID, quantity: req.Quantity})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeMessage(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.carts[userID] {
		if e.productID == id {
			b.carts[userID][i].quantity = req.Quantity
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Item not in cart")
}

func (b *Backend) handleRemove(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.carts[userID]
	for i, e := range entries {
		if e.productID == id {
			b.carts[userID] = append(entries[:i:i], entries[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Item not in cart")
}

func (b *Backend) handleClear(w http.ResponseWriter, _ *http.Request, userID string) {
	b.mu.Lock()
	delete(b.carts, userID)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleCreateOrder(w http.ResponseWriter, _ *http.Request, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.carts[userID]
	if len(entries) == 0 {
		writeMessage(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	total := decimal.Zero
	for _, e := range entries {
		if p, ok := b.products[e.productID]; ok {
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(e.quantity))))
		}
	}
	b.nextOrder++
	delete(b.carts, userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"_id":         fmt.Sprintf("order-%d", b.nextOrder),
			"status":      "pending",
			"totalAmount": total.InexactFloat64(),
		},
	})
}

func productJSON(p domain.Product) map[string]any {
	return map[string]any{
		"_id":      p.ID,
		"name":     p.Name,
		"price":    p.Price.InexactFloat64(),
		"imageUrl": p.ImageURL,
		"category": p.Category,
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
