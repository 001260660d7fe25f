package adapter

import (
	"context"

	"github.com/felixgeelhaar/stack-go/stage"
)

const handlerLayer = "handler"

// Handler mediation failures.
const (
	msgNoInputHandler = "no input handler"
	msgNoInnerHandler = "inner stage returned no handler"
	msgRecvHandler    = "failed to receive message from input handler"
	msgSendHandler    = "failed to send message to inner handler"
	msgRecvInnerReply = "failed to receive response from inner handler"
	msgSendReply      = "failed to send response to input handler"
)

// Number is satisfied by the built-in numeric types.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Sum adds two messages.
func Sum[M Number](a, b M) M { return a + b }

// Handler returns a layer that mediates between the caller's handler and a
// handler obtained from the inner stage on every call.
//
// Per call it asks the inner stage for a fresh handler, forwards one message
// from the caller's handler to it, receives two replies, combines them and
// sends the result back to the caller's handler. Both handlers are driven in
// sequence on the caller's goroutine.
func Handler[M any](combine func(M, M) M) stage.Layer[stage.Handler[M], struct{}, struct{}, stage.Handler[M]] {
	return func(inner stage.Stage[struct{}, stage.Handler[M]]) stage.Stage[stage.Handler[M], struct{}] {
		return &handlerStage[M]{inner: inner, combine: combine}
	}
}

type handlerStage[M any] struct {
	inner   stage.Stage[struct{}, stage.Handler[M]]
	combine func(M, M) M
}

func (s *handlerStage[M]) Ready(ctx context.Context) error {
	return stage.Wrap(handlerLayer, s.inner.Ready(ctx))
}

func (s *handlerStage[M]) Call(ctx context.Context, caller stage.Handler[M]) (struct{}, error) {
	if caller == nil {
		return struct{}{}, stage.Mediation(handlerLayer, msgNoInputHandler)
	}

	h, err := s.inner.Call(ctx, struct{}{})
	if err != nil {
		return struct{}{}, stage.Wrap(handlerLayer, err)
	}
	if h == nil {
		return struct{}{}, stage.Mediation(handlerLayer, msgNoInnerHandler)
	}

	msg, err := caller.Receive(ctx)
	if err != nil {
		return struct{}{}, mediation(ctx, handlerLayer, msgRecvHandler, err)
	}
	if err := h.Send(ctx, msg); err != nil {
		return struct{}{}, mediation(ctx, handlerLayer, msgSendHandler, err)
	}

	first, err := h.Receive(ctx)
	if err != nil {
		return struct{}{}, mediation(ctx, handlerLayer, msgRecvInnerReply, err)
	}
	second, err := h.Receive(ctx)
	if err != nil {
		return struct{}{}, mediation(ctx, handlerLayer, msgRecvInnerReply, err)
	}

	if err := caller.Send(ctx, s.combine(first, second)); err != nil {
		return struct{}{}, mediation(ctx, handlerLayer, msgSendReply, err)
	}
	return struct{}{}, nil
}
