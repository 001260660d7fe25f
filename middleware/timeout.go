package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

// Timeout returns middleware that enforces a call deadline.
// If the stage does not complete within the specified duration,
// the context is cancelled and context.DeadlineExceeded reaches the stage.
func Timeout[I, O any](d time.Duration) stage.Middleware[I, O] {
	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Call(ctx, in)
		})
	}
}
