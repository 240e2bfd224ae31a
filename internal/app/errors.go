package app

import "errors"

var (
	// ErrEmptyCart indicates checkout was attempted with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoProducts indicates an add request named no products.
	ErrNoProducts = errors.New("at least one product id required")
)
