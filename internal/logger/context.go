package logger

import (
	"context"
	"log/slog"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying the request's correlation ID
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID stored by WithCorrelationID, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// FromContext narrows base with the context's correlation ID, if any
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := CorrelationID(ctx); id != "" {
		return base.With("correlation_id", id)
	}
	return base
}
