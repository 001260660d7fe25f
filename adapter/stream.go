package adapter

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/stage"
)

const streamLayer = "stream"

// Stream mediation failures.
const (
	msgReadInput  = "failed to read from input reader"
	msgWriteInner = "failed to write to inner stage"
	msgReadInner  = "failed to read from inner stage"
	msgWriteInput = "failed to write to input writer"
)

// StreamOption configures the stream adapter.
type StreamOption func(*streamConfig)

type streamConfig struct {
	bufferSize int
	transform  func([]byte) []byte
}

// WithBufferSize sets the chunk size read from either side and the capacity
// of the pipe to the inner stage. Default: bridge.DefaultBufferSize.
func WithBufferSize(n int) StreamOption {
	return func(c *streamConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithTransform sets the function applied to bytes crossing the adapter in
// either direction. Default: Reverse.
func WithTransform(fn func([]byte) []byte) StreamOption {
	return func(c *streamConfig) {
		if fn != nil {
			c.transform = fn
		}
	}
}

// Stream returns a layer that bridges the caller's byte connection to a fresh
// connection handed to the inner stage.
//
// Each call performs exactly one exchange: one chunk from the caller is
// transformed and written to the inner stage, and one chunk of its reply is
// transformed and written back. The inner stage runs on its own goroutine and
// is always joined before Call returns. Endpoints are released when the
// exchange ends; caller halves are closed when they implement io.Closer.
func Stream(opts ...StreamOption) stage.Layer[bridge.Conn, struct{}, bridge.Conn, struct{}] {
	cfg := streamConfig{
		bufferSize: bridge.DefaultBufferSize,
		transform:  Reverse,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(inner stage.Stage[bridge.Conn, struct{}]) stage.Stage[bridge.Conn, struct{}] {
		return &streamStage{inner: inner, cfg: cfg}
	}
}

type streamStage struct {
	inner stage.Stage[bridge.Conn, struct{}]
	cfg   streamConfig
}

func (s *streamStage) Ready(ctx context.Context) error {
	return stage.Wrap(streamLayer, s.inner.Ready(ctx))
}

func (s *streamStage) Call(ctx context.Context, conn bridge.Conn) (struct{}, error) {
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ours, theirs := bridge.Pipe(s.cfg.bufferSize)
	task := bridge.Go(func() (struct{}, error) {
		defer theirs.Close()
		return s.inner.Call(innerCtx, theirs)
	})

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = conn.Close()
			_ = ours.Close()
		})
	}
	// Blocked reads and writes return once their endpoints are closed.
	stop := context.AfterFunc(ctx, release)

	err := s.exchange(ctx, conn, ours)
	stop()
	if err != nil {
		cancel()
	}
	release()

	_, joinErr := task.Wait()
	return struct{}{}, joinResult(streamLayer, err, joinErr)
}

func (s *streamStage) exchange(ctx context.Context, conn, inner bridge.Conn) error {
	buf := make([]byte, s.cfg.bufferSize)

	n, err := conn.Read(buf)
	if n == 0 {
		return mediation(ctx, streamLayer, msgReadInput, err)
	}
	if _, err := inner.Write(s.cfg.transform(buf[:n])); err != nil {
		return mediation(ctx, streamLayer, msgWriteInner, err)
	}

	n, err = inner.Read(buf)
	if n == 0 {
		return mediation(ctx, streamLayer, msgReadInner, err)
	}
	if _, err := conn.Write(s.cfg.transform(buf[:n])); err != nil {
		return mediation(ctx, streamLayer, msgWriteInput, err)
	}
	return nil
}

// Reverse returns a copy of b with the byte order reversed.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
