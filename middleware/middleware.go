package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

// DefaultStack returns the recommended production middleware stack.
// This includes panic recovery, request ID injection, and logging.
func DefaultStack[I, O any](logger Logger, name string) []stage.Middleware[I, O] {
	return []stage.Middleware[I, O]{
		Recover[I, O](),
		RequestID[I, O](),
		Logging[I, O](logger, name),
	}
}

// DefaultStackWithTimeout returns the default stack with a timeout middleware.
func DefaultStackWithTimeout[I, O any](logger Logger, name string, timeout time.Duration) []stage.Middleware[I, O] {
	return []stage.Middleware[I, O]{
		Recover[I, O](),
		RequestID[I, O](),
		Timeout[I, O](timeout),
		Logging[I, O](logger, name),
	}
}

// callStage replaces Call and delegates Ready to next.
type callStage[I, O any] struct {
	next stage.Stage[I, O]
	call func(ctx context.Context, in I) (O, error)
}

func (s *callStage[I, O]) Ready(ctx context.Context) error {
	return s.next.Ready(ctx)
}

func (s *callStage[I, O]) Call(ctx context.Context, in I) (O, error) {
	return s.call(ctx, in)
}

func wrap[I, O any](next stage.Stage[I, O], call func(ctx context.Context, in I) (O, error)) stage.Stage[I, O] {
	return &callStage[I, O]{next: next, call: call}
}
