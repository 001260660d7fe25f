package middleware

import (
	"context"
	"io"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/stage"
)

const sizeLimitLayer = "sizelimit"

// SizeLimitOption configures the size limit middleware.
type SizeLimitOption func(*sizeLimitConfig)

type sizeLimitConfig struct {
	logger Logger
}

// WithSizeLimitLogger sets the logger for size limit events.
func WithSizeLimitLogger(l Logger) SizeLimitOption {
	return func(o *sizeLimitConfig) {
		o.logger = l
	}
}

// SizeLimit returns middleware that rejects requests whose size, as reported
// by sizeOf, exceeds maxBytes. Rejected calls fail with a mediation error
// whose cause is ErrTooLarge.
func SizeLimit[I, O any](maxBytes int64, sizeOf func(I) int64, opts ...SizeLimitOption) stage.Middleware[I, O] {
	cfg := &sizeLimitConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			if size := sizeOf(in); size > maxBytes {
				if cfg.logger != nil {
					cfg.logger.Warn("request size limit exceeded",
						F("size", size),
						F("max", maxBytes),
					)
				}
				var zero O
				return zero, stage.MediationCause(sizeLimitLayer, "request rejected", ErrTooLarge)
			}

			return next.Call(ctx, in)
		})
	}
}

// BytesLen reports the length of a byte slice request.
func BytesLen(b []byte) int64 { return int64(len(b)) }

// ChunkLimit returns middleware for byte connection stages that caps every
// read from the caller's connection at maxBytes. Oversized chunks fail the
// read with ErrTooLarge, which the stream adapter reports as a mediation
// failure.
func ChunkLimit[O any](maxBytes int64) stage.Middleware[bridge.Conn, O] {
	return func(next stage.Stage[bridge.Conn, O]) stage.Stage[bridge.Conn, O] {
		return wrap(next, func(ctx context.Context, conn bridge.Conn) (O, error) {
			conn.Reader = &limitedReader{r: conn.Reader, max: maxBytes}
			return next.Call(ctx, conn)
		})
	}
}

// Common size limit presets.
const (
	// KB is 1024 bytes.
	KB = 1024
	// MB is 1024 * 1024 bytes.
	MB = 1024 * 1024
)

// limitedReader fails reads that fill more than max bytes. It keeps the
// underlying reader closable.
type limitedReader struct {
	r   io.Reader
	max int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > l.max {
		p = p[:l.max+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.max {
		return 0, ErrTooLarge
	}
	return n, err
}

func (l *limitedReader) Close() error {
	if c, ok := l.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
