package stage

import (
	"context"
	"errors"
)

// Stage is a single element of a request pipeline.
//
// Ready reports whether the stage has capacity for another call. It must not
// block. A nil error means ready; a non-nil error explains why not. Readiness
// is advisory: a caller that ignores it risks having its call rejected or
// queued, but stages do not enforce the ordering.
//
// Call processes one request. It may suspend until the result is available and
// may itself call other stages.
type Stage[I, O any] interface {
	Ready(ctx context.Context) error
	Call(ctx context.Context, in I) (O, error)
}

// Func is an adapter to allow ordinary functions as stages.
// A Func is always ready.
type Func[I, O any] func(ctx context.Context, in I) (O, error)

// Ready always reports capacity.
func (f Func[I, O]) Ready(context.Context) error { return nil }

// Call calls f(ctx, in).
func (f Func[I, O]) Call(ctx context.Context, in I) (O, error) {
	return f(ctx, in)
}

// ErrNotReady is matched by every error returned from NotReady.
var ErrNotReady = errors.New("stage: not ready")

type notReadyError struct {
	reason string
}

func (e *notReadyError) Error() string { return "stage: not ready: " + e.reason }

func (e *notReadyError) Is(target error) bool { return target == ErrNotReady }

// NotReady returns an error a stage's Ready method reports when it has no
// capacity, carrying the reason.
func NotReady(reason string) error {
	return &notReadyError{reason: reason}
}
