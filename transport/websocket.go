package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// WebSocket serves a handler stage over WebSocket connections. Every
// upgraded connection becomes a ConnHandler exchanging JSON-encoded messages
// of type M, and the stage is called with it until a call fails or the
// connection closes.
type WebSocket[M any] struct {
	addr     string
	upgrader websocket.Upgrader
	logger   middleware.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu         sync.RWMutex
	listenAddr string
	server     *http.Server
	clients    map[*ConnHandler[M]]struct{}
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*wsConfig)

type wsConfig struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	checkOrigin  func(r *http.Request) bool
	logger       middleware.Logger
}

// WithWebSocketReadTimeout sets the read timeout for WebSocket messages.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.readTimeout = d
	}
}

// WithWebSocketWriteTimeout sets the write timeout for WebSocket messages.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.writeTimeout = d
	}
}

// WithWebSocketCheckOrigin sets the origin check function for WebSocket upgrades.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(c *wsConfig) {
		c.checkOrigin = fn
	}
}

// WithWebSocketLogger sets the logger for connection events.
func WithWebSocketLogger(l middleware.Logger) WebSocketOption {
	return func(c *wsConfig) {
		c.logger = l
	}
}

func newWSConfig(opts []WebSocketOption) wsConfig {
	cfg := wsConfig{
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		checkOrigin:  func(r *http.Request) bool { return true }, // Allow all origins by default
		logger:       middleware.NopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewWebSocket creates a new WebSocket transport.
func NewWebSocket[M any](addr string, opts ...WebSocketOption) *WebSocket[M] {
	cfg := newWSConfig(opts)
	return &WebSocket[M]{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
		logger:       cfg.logger,
		readTimeout:  cfg.readTimeout,
		writeTimeout: cfg.writeTimeout,
		clients:      make(map[*ConnHandler[M]]struct{}),
	}
}

// Addr returns the configured address.
func (ws *WebSocket[M]) Addr() string {
	return ws.addr
}

// ListenAddr returns the address the server is listening on once Serve has
// started, or an empty string.
func (ws *WebSocket[M]) ListenAddr() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.listenAddr
}

// Serve starts the WebSocket server.
func (ws *WebSocket[M]) Serve(ctx context.Context, s stage.Stage[stage.Handler[M], struct{}]) error {
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	ws.listenAddr = listener.Addr().String()
	ws.server = &http.Server{Handler: ws.Handler(ctx, s)}
	server := ws.server
	ws.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ws.closeAllClients()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Handler returns the http.Handler that upgrades requests and serves them
// to s. Connections end when ctx does.
func (ws *WebSocket[M]) Handler(ctx context.Context, s stage.Stage[stage.Handler[M], struct{}]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.handleConnection(ctx, w, r, s)
	})
}

func (ws *WebSocket[M]) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, s stage.Stage[stage.Handler[M], struct{}]) {
	if err := s.Ready(ctx); err != nil {
		http.Error(w, err.Error(), StatusCode(err))
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newConnHandler[M](conn, ws.readTimeout, ws.writeTimeout)

	ws.mu.Lock()
	ws.clients[client] = struct{}{}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, client)
		ws.mu.Unlock()
		_ = client.Close()
	}()

	callCtx := ContextWithHeaders(ctx, r.Header)
	callCtx = middleware.WithMetadataValue(callCtx, "client", r.RemoteAddr)

	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := s.Call(callCtx, client); err != nil {
			if !isClosed(err) {
				ws.logger.Warn("websocket session ended",
					middleware.F("remote", r.RemoteAddr),
					middleware.F("error", err.Error()),
					middleware.F("error_kind", stage.KindOf(err).String()),
				)
			}
			return
		}
	}
}

func (ws *WebSocket[M]) closeAllClients() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for client := range ws.clients {
		_ = client.Close()
	}
}

// isClosed reports whether err comes from a peer that went away normally.
func isClosed(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return errors.Is(err, net.ErrClosed)
}
