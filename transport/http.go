package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// HTTP serves a byte stage over HTTP. Every POST to /call is one exchange:
// the request body is the connection's read half and the buffered response
// body its write half.
type HTTP struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	corsConfig   *CORSConfig
	logger       middleware.Logger

	mu         sync.RWMutex
	listenAddr string
	server     *http.Server
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithReadTimeout sets the read timeout for HTTP requests.
func WithReadTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.readTimeout = d
	}
}

// WithWriteTimeout sets the write timeout for HTTP responses.
func WithWriteTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.writeTimeout = d
	}
}

// WithHTTPLogger sets the logger for failed exchanges.
func WithHTTPLogger(l middleware.Logger) HTTPOption {
	return func(h *HTTP) {
		h.logger = l
	}
}

// NewHTTP creates a new HTTP transport.
func NewHTTP(addr string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		addr:         addr,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		logger:       middleware.NopLogger{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Addr returns the configured address.
func (h *HTTP) Addr() string {
	return h.addr
}

// ListenAddr returns the actual address the server is listening on.
func (h *HTTP) ListenAddr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listenAddr
}

// Serve starts the HTTP server and serves s until ctx ends.
func (h *HTTP) Serve(ctx context.Context, s stage.Stage[bridge.Conn, struct{}]) error {
	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	h.mu.Lock()
	h.listenAddr = listener.Addr().String()
	h.server = &http.Server{
		Handler:      h.Handler(s),
		ReadTimeout:  h.readTimeout,
		WriteTimeout: h.writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	server := h.server
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler returns the http.Handler serving s, wrapped with CORS when
// configured.
//
// Endpoints:
//   - POST /call runs one exchange with the request body.
//   - GET /health reports whether s is ready.
func (h *HTTP) Handler(s stage.Stage[bridge.Conn, struct{}]) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h.handleHealth(w, r, s)
	})

	mux.HandleFunc("/call", func(w http.ResponseWriter, r *http.Request) {
		h.handleCall(w, r, s)
	})

	if h.corsConfig != nil {
		return CORSHandler(*h.corsConfig, mux)
	}
	return mux
}

func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request, s stage.Stage[bridge.Conn, struct{}]) {
	status, code := "ok", http.StatusOK
	if err := s.Ready(r.Context()); err != nil {
		status, code = err.Error(), StatusCode(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (h *HTTP) handleCall(w http.ResponseWriter, r *http.Request, s stage.Stage[bridge.Conn, struct{}]) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := ContextWithHeaders(r.Context(), r.Header)
	ctx = middleware.WithMetadataValue(ctx, "client", r.RemoteAddr)

	if err := s.Ready(ctx); err != nil {
		http.Error(w, err.Error(), StatusCode(err))
		return
	}

	var out bytes.Buffer
	if _, err := s.Call(ctx, bridge.Conn{Reader: r.Body, Writer: &out}); err != nil {
		h.logger.Warn("exchange failed",
			middleware.F("remote", r.RemoteAddr),
			middleware.F("error", err.Error()),
			middleware.F("error_kind", stage.KindOf(err).String()),
		)
		http.Error(w, err.Error(), StatusCode(err))
		return
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		w.Header().Set("X-Request-ID", id)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes())
}
