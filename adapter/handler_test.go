package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/stack-go/adapter"
	"github.com/felixgeelhaar/stack-go/stage"
	"github.com/felixgeelhaar/stack-go/testutil"
)

// closedHandler fails every operation as if its peer had gone away.
type closedHandler[M any] struct{}

var errHandlerClosed = errors.New("handler closed")

func (closedHandler[M]) Send(context.Context, M) error { return errHandlerClosed }

func (closedHandler[M]) Receive(context.Context) (M, error) {
	var zero M
	return zero, errHandlerClosed
}

func counterFactory() stage.Stage[struct{}, stage.Handler[uint32]] {
	return stage.Func[struct{}, stage.Handler[uint32]](func(context.Context, struct{}) (stage.Handler[uint32], error) {
		return testutil.NewCounter(0), nil
	})
}

func TestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("combines two replies from the inner handler", func(t *testing.T) {
		caller := testutil.NewCounter(654)
		s := adapter.Handler(adapter.Sum[uint32])(counterFactory())

		if _, err := s.Call(ctx, caller); err != nil {
			t.Fatalf("Call() = %v", err)
		}
		if got := caller.Value(); got != 1309 {
			t.Errorf("caller holds %d, want 1309", got)
		}
	})

	t.Run("holds 2v+1 for any v", func(t *testing.T) {
		s := adapter.Handler(adapter.Sum[uint32])(counterFactory())
		for _, v := range []uint32{0, 1, 7, 1000} {
			caller := testutil.NewCounter(v)
			if _, err := s.Call(ctx, caller); err != nil {
				t.Fatalf("Call(%d) = %v", v, err)
			}
			if got := caller.Value(); got != 2*v+1 {
				t.Errorf("v=%d: caller holds %d, want %d", v, got, 2*v+1)
			}
		}
	})

	t.Run("nil caller handler is a mediation failure", func(t *testing.T) {
		_, err := adapter.Handler(adapter.Sum[uint32])(counterFactory()).Call(ctx, nil)
		testutil.AssertMediation(t, err)
	})

	t.Run("closed caller handler is a mediation failure", func(t *testing.T) {
		_, err := adapter.Handler(adapter.Sum[uint32])(counterFactory()).Call(ctx, closedHandler[uint32]{})
		testutil.AssertMediation(t, err)
		testutil.AssertRootCause(t, err, errHandlerClosed)
	})

	t.Run("closed inner handler is a mediation failure", func(t *testing.T) {
		inner := stage.Func[struct{}, stage.Handler[uint32]](func(context.Context, struct{}) (stage.Handler[uint32], error) {
			return closedHandler[uint32]{}, nil
		})

		_, err := adapter.Handler(adapter.Sum[uint32])(inner).Call(ctx, testutil.NewCounter(1))
		testutil.AssertMediation(t, err)
	})

	t.Run("inner stage returning no handler is a mediation failure", func(t *testing.T) {
		inner := stage.Func[struct{}, stage.Handler[uint32]](func(context.Context, struct{}) (stage.Handler[uint32], error) {
			return nil, nil
		})

		_, err := adapter.Handler(adapter.Sum[uint32])(inner).Call(ctx, testutil.NewCounter(1))
		testutil.AssertMediation(t, err)
	})

	t.Run("inner stage error is wrapped", func(t *testing.T) {
		root := errors.New("Inner service error")
		s := adapter.Handler(adapter.Sum[uint32])(testutil.Failing[struct{}, stage.Handler[uint32]](root))

		_, err := s.Call(ctx, testutil.NewCounter(1))
		if !stage.IsWrapped(err) {
			t.Fatalf("expected wrapped failure, got %v", err)
		}
		if stage.Inner(err) != root {
			t.Errorf("Inner() = %v, want %v", stage.Inner(err), root)
		}
	})
}
