package adapter

import (
	"context"

	"github.com/felixgeelhaar/stack-go/stage"
)

// Basic returns a layer that converts each request with convert and forwards
// it to the inner stage on the caller's goroutine. The inner stage's response
// and error are returned unchanged.
func Basic[I, NI, O any](convert func(I) NI) stage.Layer[I, O, NI, O] {
	return func(inner stage.Stage[NI, O]) stage.Stage[I, O] {
		return &basicStage[I, NI, O]{inner: inner, convert: convert}
	}
}

type basicStage[I, NI, O any] struct {
	inner   stage.Stage[NI, O]
	convert func(I) NI
}

func (s *basicStage[I, NI, O]) Ready(ctx context.Context) error {
	return s.inner.Ready(ctx)
}

func (s *basicStage[I, NI, O]) Call(ctx context.Context, in I) (O, error) {
	return s.inner.Call(ctx, s.convert(in))
}
