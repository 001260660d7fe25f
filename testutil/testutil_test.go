package testutil_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
	"github.com/felixgeelhaar/stack-go/testutil"
)

func TestCounter(t *testing.T) {
	ctx := context.Background()
	c := testutil.NewCounter(10)

	if v, _ := c.Receive(ctx); v != 10 {
		t.Errorf("first Receive() = %d, want 10", v)
	}
	if v, _ := c.Receive(ctx); v != 11 {
		t.Errorf("second Receive() = %d, want 11", v)
	}
	if err := c.Send(ctx, 3); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if c.Value() != 3 {
		t.Errorf("Value() = %d, want 3", c.Value())
	}
}

func TestStreamClient(t *testing.T) {
	echo := stage.Func[bridge.Conn, struct{}](func(_ context.Context, conn bridge.Conn) (struct{}, error) {
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			return struct{}{}, err
		}
		_, err = conn.Write(buf[:n])
		return struct{}{}, err
	})

	reply, err := testutil.NewStreamClient(t, echo).Exchange(context.Background(), []byte("ping"))
	if err != nil {
		t.Fatalf("Exchange() = %v", err)
	}
	if string(reply) != "ping" {
		t.Errorf("reply = %q, want %q", reply, "ping")
	}
}

func TestExchangeMessage(t *testing.T) {
	inc := stage.Func[bridge.Duplex[int], struct{}](func(ctx context.Context, d bridge.Duplex[int]) (struct{}, error) {
		v, err := bridge.Receive(ctx, d.Recv, nil)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, bridge.Send(ctx, d.Send, v+1, nil)
	})

	reply, err := testutil.ExchangeMessage[int](context.Background(), inc, 41)
	if err != nil {
		t.Fatalf("ExchangeMessage() = %v", err)
	}
	if reply != 42 {
		t.Errorf("reply = %d, want 42", reply)
	}
}

func TestRecorder(t *testing.T) {
	rec := testutil.NewRecorder(func(_ context.Context, in string) (int, error) {
		return len(in), nil
	})

	_, _ = rec.Call(context.Background(), "a")
	_, _ = rec.Call(context.Background(), "bc")

	reqs := rec.Requests()
	if len(reqs) != 2 || reqs[0] != "a" || reqs[1] != "bc" {
		t.Errorf("Requests() = %v", reqs)
	}

	rec.Reset()
	if len(rec.Requests()) != 0 {
		t.Error("expected no requests after Reset")
	}
}

func TestCannedStages(t *testing.T) {
	t.Run("Failing", func(t *testing.T) {
		want := errors.New("fail")
		if _, err := testutil.Failing[int, int](want).Call(context.Background(), 1); err != want {
			t.Errorf("err = %v, want %v", err, want)
		}
	})

	t.Run("Blocking", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := testutil.Blocking[int, int]().Call(ctx, 1)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("Panicking", func(t *testing.T) {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		_, _ = testutil.Panicking[int, int]("boom").Call(context.Background(), 1)
	})
}

func TestAssertions(t *testing.T) {
	root := errors.New("root")
	err := stage.MediationCause("stream", "failed to read from inner stage", root)

	testutil.AssertMediation(t, err)
	testutil.AssertRootCause(t, err, root)
}

func TestRecordingLogger(t *testing.T) {
	logger := &testutil.RecordingLogger{}

	logger.Info("call completed", middleware.F("stage", "echo"))
	logger.Error("call failed", middleware.F("error_kind", "mediation"))
	logger.Warn("call failed")

	if got := len(logger.Entries()); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}

	failed := logger.Find("call failed")
	if len(failed) != 2 {
		t.Fatalf("found %d entries, want 2", len(failed))
	}
	if failed[0].Level != "error" || failed[1].Level != "warn" {
		t.Errorf("levels = %q, %q", failed[0].Level, failed[1].Level)
	}
	if got := failed[0].Field("error_kind"); got != "mediation" {
		t.Errorf("error_kind = %v, want mediation", got)
	}
	if got := failed[1].Field("error_kind"); got != nil {
		t.Errorf("missing field = %v, want nil", got)
	}
}
