package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// Transport feeds endpoints of type I into a stage, one call per exchange.
type Transport[I any] interface {
	// Serve runs the transport, blocking until ctx is canceled, the input
	// is exhausted or an error occurs.
	Serve(ctx context.Context, s stage.Stage[I, struct{}]) error

	// Addr returns the transport's address description.
	Addr() string
}

var (
	_ Transport[bridge.Conn]           = (*Stdio)(nil)
	_ Transport[bridge.Conn]           = (*HTTP)(nil)
	_ Transport[stage.Handler[[]byte]] = (*WebSocket[[]byte])(nil)
)

// ContextWithHeaders returns a context carrying the first value of every
// header as call metadata, so that middleware such as Auth can read it.
// Each value is stored under the canonical and the lower-case header name.
// An X-Request-ID header becomes the call's request ID.
func ContextWithHeaders(ctx context.Context, h http.Header) context.Context {
	meta := make(middleware.Metadata, 2*len(h))
	for k, v := range h {
		if len(v) > 0 {
			meta[k] = v[0]
			meta[strings.ToLower(k)] = v[0]
		}
	}
	ctx = middleware.ContextWithMetadata(ctx, meta)
	if id := h.Get("X-Request-ID"); id != "" {
		ctx = middleware.ContextWithRequestID(ctx, id)
	}
	return ctx
}

// StatusCode maps a stage error to an HTTP status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, stage.ErrNotReady), errors.Is(err, middleware.ErrDraining),
		errors.Is(err, middleware.ErrAtCapacity):
		return http.StatusServiceUnavailable
	case errors.Is(err, middleware.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, middleware.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stage.IsMediation(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
