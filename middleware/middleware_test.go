package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

func echo() stage.Stage[string, string] {
	return stage.Func[string, string](func(_ context.Context, in string) (string, error) {
		return in, nil
	})
}

type notReadyStage struct {
	stage.Stage[string, string]
}

func (notReadyStage) Ready(context.Context) error { return stage.NotReady("busy") }

func TestDefaultStack(t *testing.T) {
	t.Run("returns recover, request ID and logging", func(t *testing.T) {
		mws := DefaultStack[string, string](NopLogger{}, "echo")
		if len(mws) != 3 {
			t.Fatalf("len = %d, want 3", len(mws))
		}
	})

	t.Run("with timeout adds a fourth middleware", func(t *testing.T) {
		mws := DefaultStackWithTimeout[string, string](NopLogger{}, "echo", time.Second)
		if len(mws) != 4 {
			t.Fatalf("len = %d, want 4", len(mws))
		}
	})

	t.Run("stack recovers panics", func(t *testing.T) {
		s := stage.Chain(DefaultStack[string, string](NopLogger{}, "boom")...)(
			stage.Func[string, string](func(context.Context, string) (string, error) {
				panic("boom")
			}),
		)

		_, err := s.Call(context.Background(), "x")
		if !stage.IsMediation(err) {
			t.Fatalf("expected mediation failure, got %v", err)
		}
	})

	t.Run("stack logs failures with a request ID", func(t *testing.T) {
		logger := &mockLogger{}
		s := stage.Chain(DefaultStack[string, string](logger, "fail")...)(
			stage.Func[string, string](func(context.Context, string) (string, error) {
				return "", errors.New("fail")
			}),
		)

		_, _ = s.Call(context.Background(), "x")
		if len(logger.entries) != 1 || logger.entries[0].level != "error" {
			t.Fatalf("entries = %+v, want one error entry", logger.entries)
		}
		if !hasField(logger.entries[0].fields, "request_id") {
			t.Error("expected request_id field")
		}
	})
}

func TestMiddlewareDelegatesReady(t *testing.T) {
	mws := []stage.Middleware[string, string]{
		Recover[string, string](),
		Timeout[string, string](time.Second),
		RequestID[string, string](),
		Logging[string, string](NopLogger{}, "s"),
		OTel[string, string]("s"),
		RateLimit[string, string](10, 10),
		SizeLimit[string, string](10, func(s string) int64 { return int64(len(s)) }),
		Auth[string, string](func(context.Context) (*Identity, error) { return nil, nil }),
	}

	for i, mw := range mws {
		s := mw(notReadyStage{Stage: echo()})
		if err := s.Ready(context.Background()); !errors.Is(err, stage.ErrNotReady) {
			t.Errorf("middleware %d: Ready() = %v, want ErrNotReady", i, err)
		}
	}
}

func hasField(fields []Field, key string) bool {
	for _, f := range fields {
		if f.Key == key {
			return true
		}
	}
	return false
}
