// Package testutil provides testing utilities for stages and stacks.
//
// It offers a counting handler, clients that drive the byte and channel
// adapters from the caller's side, canned stages, a recording logger and
// assertion helpers.
//
// Example usage:
//
//	func TestMyStack(t *testing.T) {
//	    s := adapter.Stream()(myStage)
//
//	    client := testutil.NewStreamClient(t, s)
//	    reply, err := client.Exchange(ctx, []byte("ping"))
//	    if err != nil {
//	        t.Fatalf("exchange failed: %v", err)
//	    }
//	}
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// Counter is a handler holding the latest value it was sent. Every Receive
// returns the held value and then increments it. Counter is safe for
// concurrent use.
type Counter struct {
	value atomic.Uint32
}

// NewCounter creates a Counter holding initial.
func NewCounter(initial uint32) *Counter {
	c := &Counter{}
	c.value.Store(initial)
	return c
}

// Send stores msg.
func (c *Counter) Send(_ context.Context, msg uint32) error {
	c.value.Store(msg)
	return nil
}

// Receive returns the held value and increments it.
func (c *Counter) Receive(_ context.Context) (uint32, error) {
	return c.value.Add(1) - 1, nil
}

// Value returns the held value without incrementing it.
func (c *Counter) Value() uint32 {
	return c.value.Load()
}

// StreamClient drives a byte stage from the caller's side.
type StreamClient struct {
	t     testing.TB
	stage stage.Stage[bridge.Conn, struct{}]
	size  int
}

// NewStreamClient creates a client for s.
func NewStreamClient(t testing.TB, s stage.Stage[bridge.Conn, struct{}]) *StreamClient {
	t.Helper()
	return &StreamClient{t: t, stage: s, size: bridge.DefaultBufferSize}
}

// Exchange calls the stage with a fresh connection, writes in, reads one
// reply chunk and returns it together with the call's error. The caller's
// end is closed before waiting for the call to finish.
func (c *StreamClient) Exchange(ctx context.Context, in []byte) ([]byte, error) {
	c.t.Helper()

	ours, theirs := bridge.Pipe(c.size)
	task := bridge.Go(func() (struct{}, error) {
		return c.stage.Call(ctx, theirs)
	})

	var reply []byte
	if _, err := ours.Write(in); err == nil {
		buf := make([]byte, c.size)
		n, _ := ours.Read(buf)
		reply = buf[:n]
	}
	_ = ours.Close()

	_, err := task.Wait()
	return reply, err
}

// ExchangeMessage calls a channel stage with a fresh duplex, sends msg and
// returns the first reply together with the call's error.
func ExchangeMessage[T any](ctx context.Context, s stage.Stage[bridge.Duplex[T], struct{}], msg T) (T, error) {
	ours, theirs := bridge.NewDuplex[T](1)
	task := bridge.Go(func() (struct{}, error) {
		return s.Call(ctx, theirs)
	})

	var reply T
	if err := bridge.Send(ctx, ours.Send, msg, task.Done()); err == nil {
		reply, _ = bridge.Receive(ctx, ours.Recv, task.Done())
	}
	bridge.CloseSend(ours.Send)

	_, err := task.Wait()
	return reply, err
}

// Recorder is a stage that records every request before answering it with fn.
type Recorder[I, O any] struct {
	fn func(ctx context.Context, in I) (O, error)

	mu       sync.Mutex
	requests []I
}

// NewRecorder creates a Recorder answering with fn.
func NewRecorder[I, O any](fn func(ctx context.Context, in I) (O, error)) *Recorder[I, O] {
	return &Recorder[I, O]{fn: fn}
}

// Ready always reports capacity.
func (r *Recorder[I, O]) Ready(context.Context) error { return nil }

// Call records in and answers with fn.
func (r *Recorder[I, O]) Call(ctx context.Context, in I) (O, error) {
	r.mu.Lock()
	r.requests = append(r.requests, in)
	r.mu.Unlock()
	return r.fn(ctx, in)
}

// Requests returns a copy of the recorded requests.
func (r *Recorder[I, O]) Requests() []I {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]I(nil), r.requests...)
}

// Reset clears the recorded requests.
func (r *Recorder[I, O]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

// LogEntry is one message captured by a RecordingLogger.
type LogEntry struct {
	Level  string
	Msg    string
	Fields []middleware.Field
}

// Field returns the value of the named field, or nil.
func (e LogEntry) Field(key string) any {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// RecordingLogger is a middleware.Logger that keeps every entry.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ middleware.Logger = (*RecordingLogger)(nil)

func (l *RecordingLogger) record(level, msg string, fields []middleware.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func (l *RecordingLogger) Info(msg string, fields ...middleware.Field)  { l.record("info", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...middleware.Field) { l.record("error", msg, fields) }
func (l *RecordingLogger) Debug(msg string, fields ...middleware.Field) { l.record("debug", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...middleware.Field)  { l.record("warn", msg, fields) }

// Entries returns a copy of the captured entries.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Find returns the captured entries with the given message.
func (l *RecordingLogger) Find(msg string) []LogEntry {
	var found []LogEntry
	for _, e := range l.Entries() {
		if e.Msg == msg {
			found = append(found, e)
		}
	}
	return found
}

// Failing returns a stage that always fails with err.
func Failing[I, O any](err error) stage.Stage[I, O] {
	return stage.Func[I, O](func(context.Context, I) (O, error) {
		var zero O
		return zero, err
	})
}

// Blocking returns a stage that waits for its context to end.
func Blocking[I, O any]() stage.Stage[I, O] {
	return stage.Func[I, O](func(ctx context.Context, _ I) (O, error) {
		<-ctx.Done()
		var zero O
		return zero, ctx.Err()
	})
}

// Panicking returns a stage that panics with v.
func Panicking[I, O any](v any) stage.Stage[I, O] {
	return stage.Func[I, O](func(context.Context, I) (O, error) {
		panic(v)
	})
}

// AssertMediation fails the test unless err is a mediation failure.
func AssertMediation(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected mediation failure, got nil")
	}
	if !stage.IsMediation(err) {
		t.Fatalf("expected mediation failure, got %v (kind %s)", err, stage.KindOf(err))
	}
}

// AssertRootCause fails the test unless target is in err's chain.
func AssertRootCause(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v in chain of %v", target, err)
	}
}
