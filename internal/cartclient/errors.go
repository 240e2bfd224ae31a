package cartclient

import (
	"errors"
	"net/http"
	"strings"
)

// Error kinds surfaced by the gateway. Every error returned by Client
// matches exactly one of these through errors.Is.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("authorization rejected")
	ErrAlreadyInCart   = errors.New("product already in cart")
	ErrNetwork         = errors.New("network error")
	ErrServer          = errors.New("server error")
)

// APIError represents a non-2xx cart service response.
type APIError struct {
	Status  int
	Message string
	Code    string

	kind error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the error kind.
func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(status int, message, code string) *APIError {
	kind := ErrServer
	if status == http.StatusUnauthorized {
		kind = ErrUnauthorized
	}
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
		if message == "" {
			message = "unexpected status"
		}
	}
	return &APIError{Status: status, Message: message, Code: strings.TrimSpace(code), kind: kind}
}

// alreadyInCart reports whether a failed add means the product is present.
// Backends signal this with 409 or with an "already in cart" message.
func alreadyInCart(e *APIError) bool {
	if e == nil || e.Status == http.StatusUnauthorized {
		return false
	}
	if e.Status == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "already in cart")
}
