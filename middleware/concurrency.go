package middleware

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/ferrors"

	"github.com/felixgeelhaar/stack-go/stage"
)

const concurrencyLayer = "concurrency"

// maxWaiting bounds the calls ConcurrencyLimit holds waiting for a slot.
const maxWaiting = 1024

// ConcurrencyLimit returns middleware that admits at most n concurrent calls
// to the stage. Ready reports stage.ErrNotReady while every slot is taken.
// Call waits for a free slot until its context ends, in which case it fails
// with a mediation error whose cause is the context error. Once maxWaiting
// calls are already waiting, further calls are rejected with ErrAtCapacity.
func ConcurrencyLimit[I, O any](n int) stage.Middleware[I, O] {
	return limit[I, O](n, maxWaiting)
}

// TryConcurrencyLimit is like ConcurrencyLimit but rejects a call at once
// when every slot is taken, with a mediation error whose cause is
// ErrAtCapacity.
func TryConcurrencyLimit[I, O any](n int) stage.Middleware[I, O] {
	return limit[I, O](n, 0)
}

func limit[I, O any](n, queue int) stage.Middleware[I, O] {
	if n <= 0 {
		n = 1
	}
	bh := bulkhead.New[O](bulkhead.Config{
		MaxConcurrent: n,
		MaxQueue:      queue,
	})
	inFlight := &atomic.Int64{}

	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return &limitedStage[I, O]{
			next:     next,
			bh:       bh,
			max:      int64(n),
			inFlight: inFlight,
		}
	}
}

type limitedStage[I, O any] struct {
	next     stage.Stage[I, O]
	bh       bulkhead.Bulkhead[O]
	max      int64
	inFlight *atomic.Int64
}

func (s *limitedStage[I, O]) Ready(ctx context.Context) error {
	if s.inFlight.Load() >= s.max {
		return stage.NotReady("concurrency limit reached")
	}
	return s.next.Ready(ctx)
}

func (s *limitedStage[I, O]) Call(ctx context.Context, in I) (O, error) {
	var admitted atomic.Bool
	out, err := s.bh.Execute(ctx, func(ctx context.Context) (O, error) {
		admitted.Store(true)
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		return s.next.Call(ctx, in)
	})
	if err == nil || admitted.Load() {
		return out, err
	}

	var zero O
	if errors.Is(err, ferrors.ErrBulkheadFull) {
		return zero, stage.MediationCause(concurrencyLayer, "call rejected", ErrAtCapacity)
	}
	return zero, stage.MediationCause(concurrencyLayer, "no free slot", err)
}
