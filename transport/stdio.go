package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// Stdio serves a byte stage over stdin/stdout.
type Stdio struct {
	in     io.Reader
	out    io.Writer
	logger middleware.Logger

	pollInterval time.Duration
	maxBackoff   time.Duration
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdin sets a custom stdin reader.
func WithStdin(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = w
	}
}

// WithStdioLogger sets the logger for failed exchanges.
func WithStdioLogger(l middleware.Logger) StdioOption {
	return func(s *Stdio) {
		s.logger = l
	}
}

// WithStdioBackoff sets how often readiness is polled while the stage is
// not ready, and the longest pause after calls that fail without reading
// stdin. Default: 10ms and 1s.
func WithStdioBackoff(poll, limit time.Duration) StdioOption {
	return func(s *Stdio) {
		if poll > 0 {
			s.pollInterval = poll
		}
		if limit >= s.pollInterval {
			s.maxBackoff = limit
		}
	}
}

// NewStdio creates a new stdio transport.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:           os.Stdin,
		out:          os.Stdout,
		logger:       middleware.NopLogger{},
		pollInterval: 10 * time.Millisecond,
		maxBackoff:   time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the transport address.
func (s *Stdio) Addr() string {
	return "stdio"
}

// Serve calls the stage once per exchange with stdin and stdout as its
// connection until stdin is exhausted or ctx ends. Stdin and stdout are
// never closed.
//
// No call is made while the stage reports not ready. Failed exchanges are
// logged and serving continues; a failure that read nothing from stdin is
// followed by a pause that doubles with every such failure in a row.
func (s *Stdio) Serve(ctx context.Context, st stage.Stage[bridge.Conn, struct{}]) error {
	// Neither half exposes Close, so adapters releasing the connection
	// leave the process's streams open.
	in := &countingReader{r: s.in}
	conn := bridge.Conn{
		Reader: in,
		Writer: struct{ io.Writer }{s.out},
	}

	backoff := s.pollInterval
	for {
		if err := s.waitReady(ctx, st); err != nil {
			return err
		}

		consumed := in.n.Load()
		task := bridge.Go(func() (struct{}, error) {
			return st.Call(ctx, conn)
		})

		var err error
		select {
		case <-ctx.Done():
			// A read from stdin cannot be interrupted; the call is abandoned.
			return ctx.Err()
		case <-task.Done():
			_, err = task.Wait()
		}

		switch {
		case err == nil:
			backoff = s.pollInterval
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case in.eof.Load():
			return nil
		}

		s.logger.Error("exchange failed",
			middleware.F("error", err.Error()),
			middleware.F("error_kind", stage.KindOf(err).String()),
		)

		if in.n.Load() != consumed {
			backoff = s.pollInterval
			continue
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(2*backoff, s.maxBackoff)
	}
}

// waitReady polls st until it reports ready or ctx ends.
func (s *Stdio) waitReady(ctx context.Context, st stage.Stage[bridge.Conn, struct{}]) error {
	logged := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := st.Ready(ctx)
		if err == nil {
			return nil
		}
		if !logged {
			s.logger.Warn("stage not ready", middleware.F("error", err.Error()))
			logged = true
		}
		if err := sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// countingReader counts the bytes read and records whether the underlying
// reader has reported io.EOF.
type countingReader struct {
	r   io.Reader
	n   atomic.Int64
	eof atomic.Bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	if errors.Is(err, io.EOF) {
		c.eof.Store(true)
	}
	return n, err
}
