package middleware

import (
	"context"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/stage"
)

const recoverLayer = "recover"

// PanicHandler is called when a panic is recovered.
type PanicHandler[I, O any] func(ctx context.Context, in I, panicVal any) (O, error)

// Recover returns middleware that catches panics and converts them to
// mediation failures. The panic value is kept as a *bridge.PanicError cause,
// so errors.Is(err, bridge.ErrPanicked) holds.
func Recover[I, O any]() stage.Middleware[I, O] {
	return RecoverWithHandler(defaultPanicHandler[I, O])
}

// RecoverWithHandler returns middleware that catches panics and calls the provided handler.
// This allows for custom panic handling such as logging or alerting.
func RecoverWithHandler[I, O any](handler PanicHandler[I, O]) stage.Middleware[I, O] {
	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (out O, err error) {
			defer func() {
				if r := recover(); r != nil {
					out, err = handler(ctx, in, r)
				}
			}()
			return next.Call(ctx, in)
		})
	}
}

func defaultPanicHandler[I, O any](_ context.Context, _ I, panicVal any) (O, error) {
	var zero O
	return zero, stage.MediationCause(recoverLayer, "stage panicked", &bridge.PanicError{Value: panicVal})
}
