package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnHandler is a stage.Handler exchanging JSON-encoded messages over a
// WebSocket connection. Sends and receives are each serialized, so one
// ConnHandler may be shared by concurrent calls.
type ConnHandler[M any] struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	readMu    sync.Mutex
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConnHandler[M any](conn *websocket.Conn, readTimeout, writeTimeout time.Duration) *ConnHandler[M] {
	return &ConnHandler[M]{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// NewConnHandler wraps an established connection using the transport's
// default timeouts, adjusted by opts.
func NewConnHandler[M any](conn *websocket.Conn, opts ...WebSocketOption) *ConnHandler[M] {
	cfg := newWSConfig(opts)
	return newConnHandler[M](conn, cfg.readTimeout, cfg.writeTimeout)
}

// DialHandler connects to a WebSocket server and returns a handler for the
// connection.
func DialHandler[M any](ctx context.Context, url string, header http.Header, opts ...WebSocketOption) (*ConnHandler[M], error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewConnHandler[M](conn, opts...), nil
}

// Send writes msg as one JSON text message.
func (h *ConnHandler[M]) Send(ctx context.Context, msg M) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	_ = h.conn.SetWriteDeadline(deadline(ctx, h.writeTimeout))
	return h.conn.WriteJSON(msg)
}

// Receive reads the next JSON message. A context that ends while waiting
// interrupts the read; the connection cannot be read from afterwards.
func (h *ConnHandler[M]) Receive(ctx context.Context) (M, error) {
	h.readMu.Lock()
	defer h.readMu.Unlock()

	var msg M
	if err := ctx.Err(); err != nil {
		return msg, err
	}

	_ = h.conn.SetReadDeadline(deadline(ctx, h.readTimeout))
	stop := context.AfterFunc(ctx, func() {
		_ = h.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := h.conn.ReadJSON(&msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return msg, ctxErr
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return msg, context.DeadlineExceeded
		}
		return msg, err
	}
	return msg, nil
}

// Close sends a close frame and closes the connection.
func (h *ConnHandler[M]) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.writeMu.Lock()
		_ = h.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		h.writeMu.Unlock()
		err = h.conn.Close()
	})
	return err
}

// deadline returns the earlier of ctx's deadline and now+timeout. A zero
// time means no deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}
