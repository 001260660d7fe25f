package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stack-go/stage"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "requestID"

// RequestID returns middleware that injects a unique request ID into the context.
// If a request ID already exists in the context, it is preserved.
func RequestID[I, O any]() stage.Middleware[I, O] {
	return RequestIDWithGenerator[I, O](uuid.NewString)
}

// RequestIDWithGenerator returns middleware that uses a custom ID generator.
func RequestIDWithGenerator[I, O any](generator func() string) stage.Middleware[I, O] {
	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			if existing := RequestIDFromContext(ctx); existing != "" {
				return next.Call(ctx, in)
			}
			return next.Call(ContextWithRequestID(ctx, generator()), in)
		})
	}
}

// RequestIDFromContext returns the request ID from the context, or empty string if not set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestID returns a new context with the request ID set.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
