package adapter

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/stack-go/stage"
)

const injectedLayer = "injected"

// Injected mediation failures.
const (
	msgNoHandler     = "no injected handler"
	msgSendInjected  = "failed to send request to handler"
	msgRecvInjected  = "failed to receive message from handler"
	msgSendFinalized = "failed to send result to handler"
)

// Injected returns a layer that mediates every call through h, a handler
// fixed at construction and shared by all calls and by every stage the
// layer builds.
//
// Per call the request is sent to h, h's reply is passed to the inner stage,
// and the inner stage's result is sent back to h. The send/receive pair and
// the final send each hold a lock shared by all stages built from this
// layer, so h is used by one call at a time even if it is not internally
// synchronized. The inner stage itself runs outside the lock.
func Injected[M any](h stage.Handler[M]) stage.Layer[M, struct{}, M, M] {
	mu := &sync.Mutex{}
	return func(inner stage.Stage[M, M]) stage.Stage[M, struct{}] {
		return &injectedStage[M]{inner: inner, handler: h, mu: mu}
	}
}

type injectedStage[M any] struct {
	inner   stage.Stage[M, M]
	handler stage.Handler[M]
	mu      *sync.Mutex
}

func (s *injectedStage[M]) Ready(ctx context.Context) error {
	return stage.Wrap(injectedLayer, s.inner.Ready(ctx))
}

func (s *injectedStage[M]) Call(ctx context.Context, in M) (struct{}, error) {
	if s.handler == nil {
		return struct{}{}, stage.Mediation(injectedLayer, msgNoHandler)
	}

	v, err := s.handoff(ctx, in)
	if err != nil {
		return struct{}{}, err
	}

	out, err := s.inner.Call(ctx, v)
	if err != nil {
		return struct{}{}, stage.Wrap(injectedLayer, err)
	}

	s.mu.Lock()
	err = s.handler.Send(ctx, out)
	s.mu.Unlock()
	if err != nil {
		return struct{}{}, mediation(ctx, injectedLayer, msgSendFinalized, err)
	}
	return struct{}{}, nil
}

func (s *injectedStage[M]) handoff(ctx context.Context, in M) (M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero M
	if err := s.handler.Send(ctx, in); err != nil {
		return zero, mediation(ctx, injectedLayer, msgSendInjected, err)
	}
	v, err := s.handler.Receive(ctx)
	if err != nil {
		return zero, mediation(ctx, injectedLayer, msgRecvInjected, err)
	}
	return v, nil
}
