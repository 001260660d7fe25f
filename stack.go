// Package stack provides a framework for composing request-processing
// stages.
//
// A stage answers calls of one input type with one output type. Middleware
// wraps a stage without changing its types; adapters bridge a stage's
// external representation to the representation its inner stage expects.
// Stacks are ordinary values built once and called from any number of
// goroutines.
//
// Basic usage:
//
//	logger := stack.NewZerologLogger(zerolog.New(os.Stderr))
//
//	s := stack.New(
//	    adapter.Stream()(terminal),
//	    stack.DefaultMiddleware[bridge.Conn, struct{}](logger, "echo")...,
//	)
//
//	stack.ServeStdio(ctx, s)
//
// The stage, bridge, adapter and middleware packages hold the building
// blocks; this package re-exports the common ones and runs finished stacks
// on a transport.
package stack

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/config"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
	"github.com/felixgeelhaar/stack-go/transport"
)

// Stage contract.
type (
	Stage[I, O any]         = stage.Stage[I, O]
	Func[I, O any]          = stage.Func[I, O]
	Layer[I, O, NI, NO any] = stage.Layer[I, O, NI, NO]
	Middleware[I, O any]    = stage.Middleware[I, O]
	Handler[M any]          = stage.Handler[M]
	Builder[I, O any]       = stage.Builder[I, O]
	LayerError              = stage.LayerError
	Kind                    = stage.Kind
)

// Bridge endpoints.
type (
	Conn          = bridge.Conn
	Duplex[T any] = bridge.Duplex[T]
)

// Logging types.
type (
	Logger   = middleware.Logger
	LogField = middleware.Field
)

// Error kinds.
const (
	KindMediation = stage.KindMediation
	KindWrapped   = stage.KindWrapped
)

// ErrNotReady is matched by every not-ready error.
var ErrNotReady = stage.ErrNotReady

// New wraps terminal with mws, the first one outermost.
func New[I, O any](terminal Stage[I, O], mws ...Middleware[I, O]) Stage[I, O] {
	return stage.Chain(mws...)(terminal)
}

// Use starts a stack builder with mws.
func Use[I, O any](mws ...Middleware[I, O]) *Builder[I, O] {
	return stage.Use(mws...)
}

// Compose joins two layers, outer first.
func Compose[A, B, C, D, E, F any](outer Layer[A, B, C, D], inner Layer[C, D, E, F]) Layer[A, B, E, F] {
	return stage.Compose(outer, inner)
}

// NotReady returns a not-ready error carrying reason.
func NotReady(reason string) error {
	return stage.NotReady(reason)
}

// KindOf returns the kind of the outermost layer error in err's chain, or
// zero if there is none.
func KindOf(err error) Kind {
	return stage.KindOf(err)
}

// DefaultMiddleware returns the recommended stack: Recover, RequestID and
// Logging.
func DefaultMiddleware[I, O any](logger Logger, name string) []Middleware[I, O] {
	return middleware.DefaultStack[I, O](logger, name)
}

// DefaultMiddlewareWithTimeout returns the default stack with a deadline
// applied inside it.
func DefaultMiddlewareWithTimeout[I, O any](logger Logger, name string, timeout time.Duration) []Middleware[I, O] {
	return middleware.DefaultStackWithTimeout[I, O](logger, name, timeout)
}

// NewZerologLogger returns a Logger writing to l.
func NewZerologLogger(l zerolog.Logger) Logger {
	return middleware.NewZerologLogger(l)
}

// NewZapLogger returns a Logger writing to l.
func NewZapLogger(l *zap.Logger) Logger {
	return middleware.NewZapLogger(l)
}

// LogF creates a log field.
func LogF(key string, value any) LogField {
	return middleware.F(key, value)
}

// Configured wraps terminal with the middleware described by cfg.
func Configured[I, O any](cfg *config.Config, name string, terminal Stage[I, O]) Stage[I, O] {
	return New(terminal, config.Middleware[I, O](cfg, name)...)
}

// ServeStdio runs a byte stage over stdin and stdout.
// This blocks until stdin is exhausted, the context is canceled or an error
// occurs.
func ServeStdio(ctx context.Context, s Stage[Conn, struct{}], opts ...transport.StdioOption) error {
	return transport.NewStdio(opts...).Serve(ctx, s)
}

// ServeHTTP runs a byte stage over HTTP.
// This blocks until the context is canceled or an error occurs.
func ServeHTTP(ctx context.Context, s Stage[Conn, struct{}], addr string, opts ...transport.HTTPOption) error {
	return transport.NewHTTP(addr, opts...).Serve(ctx, s)
}

// ServeWebSocket runs a handler stage over WebSocket connections carrying
// JSON-encoded messages of type M.
// This blocks until the context is canceled or an error occurs.
func ServeWebSocket[M any](ctx context.Context, s Stage[Handler[M], struct{}], addr string, opts ...transport.WebSocketOption) error {
	return transport.NewWebSocket[M](addr, opts...).Serve(ctx, s)
}
