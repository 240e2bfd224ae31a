package util

import (
	"net/http"
	"strings"
	"time"
)

// LoggingTransport emits a structured debug log for each outgoing request.
// It includes request_id so client logs can be correlated with the backend.
type LoggingTransport struct {
	Service string
	Base    http.RoundTripper
}

// NewHTTPClient returns an http.Client that logs through LoggingTransport.
func NewHTTPClient(service string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &LoggingTransport{Service: service},
	}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	service := strings.TrimSpace(t.Service)
	if service == "" {
		service = "unknown"
	}
	if id := RequestIDFromContext(req.Context()); id != "" && req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	logger := LoggerFromContext(req.Context())
	if err != nil {
		logger.Debug(
			"http_request_failed",
			"service", service,
			"method", req.Method,
			"path", req.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
		return nil, err
	}
	logger.Debug(
		"http_request",
		"service", service,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
