package util

import (
	"context"
	"log/slog"
	"strings"
)

type contextKey string

const (
	RequestIDHeader = "X-Request-Id"

	requestIDCtxKey = contextKey("request_id")
	loggerCtxKey    = contextKey("logger")
)

// WithRequestID returns a context carrying a request id, generating one when
// id is blank. A child slog.Logger carrying "request_id" is stored alongside
// so downstream code can call LoggerFromContext(ctx).
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewID()
	}
	ctx = context.WithValue(ctx, requestIDCtxKey, id)
	return ContextWithLogger(ctx, slog.Default().With("request_id", id))
}

// EnsureRequestID keeps an existing request id or attaches a new one.
func EnsureRequestID(ctx context.Context) context.Context {
	if RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, "")
}

// RequestIDFromContext returns request id from context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// ContextWithLogger stores logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}
