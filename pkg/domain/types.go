package domain

import (
	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// ProductSnapshot is the product metadata captured when a line enters the cart.
// It is a display cache and is never re-fetched for an existing line.
type ProductSnapshot struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// CartLine is one product's presence in the cart. Quantity is always >= 1.
type CartLine struct {
	ProductSnapshot
	Quantity int `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// Snapshot converts a catalog product into the cart's display cache.
func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:        p.ID,
		Title:     p.Name,
		UnitPrice: p.Price,
		ImageURL:  p.ImageURL,
	}
}

type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Role     UserRole `json:"userRole"`
	Username string   `json:"username,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Order struct {
	ID     string          `json:"_id"`
	Status string          `json:"status,omitempty"`
	Total  decimal.Decimal `json:"totalAmount"`
}
