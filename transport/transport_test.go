package transport_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
	"github.com/felixgeelhaar/stack-go/transport"
)

// upper answers one chunk with its upper-case form.
func upper() stage.Stage[bridge.Conn, struct{}] {
	return stage.Func[bridge.Conn, struct{}](func(_ context.Context, conn bridge.Conn) (struct{}, error) {
		buf := make([]byte, bridge.DefaultBufferSize)
		n, err := conn.Read(buf)
		if n == 0 {
			return struct{}{}, err
		}
		for i, c := range buf[:n] {
			if 'a' <= c && c <= 'z' {
				buf[i] = c - 'a' + 'A'
			}
		}
		_, err = conn.Write(buf[:n])
		return struct{}{}, err
	})
}

type notReady[I any] struct{}

func (notReady[I]) Ready(context.Context) error { return stage.NotReady("warming up") }

func (notReady[I]) Call(context.Context, I) (struct{}, error) { return struct{}{}, nil }

func TestContextWithHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-API-Key", "secret")
	h.Set("X-Request-ID", "req-7")

	ctx := transport.ContextWithHeaders(context.Background(), h)

	if got := middleware.MetadataValue(ctx, "X-Api-Key"); got != "secret" {
		t.Errorf("canonical key = %q, want secret", got)
	}
	if got := middleware.MetadataValue(ctx, "x-api-key"); got != "secret" {
		t.Errorf("lower-case key = %q, want secret", got)
	}
	if got := middleware.RequestIDFromContext(ctx); got != "req-7" {
		t.Errorf("request ID = %q, want req-7", got)
	}

	t.Run("API key authenticator reads header metadata", func(t *testing.T) {
		auth := middleware.APIKeyAuthenticator("X-API-Key", middleware.StaticAPIKeys(map[string]*middleware.Identity{
			"secret": {ID: "ci"},
		}))
		id, err := auth(ctx)
		if err != nil || id == nil || id.ID != "ci" {
			t.Errorf("identity = %v, %v", id, err)
		}
	})
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not ready", stage.NotReady("busy"), http.StatusServiceUnavailable},
		{"draining", stage.MediationCause("drain", "draining", middleware.ErrDraining), http.StatusServiceUnavailable},
		{"at capacity", stage.MediationCause("concurrency", "full", middleware.ErrAtCapacity), http.StatusServiceUnavailable},
		{"rate limited", stage.MediationCause("ratelimit", "limited", middleware.ErrRateLimited), http.StatusTooManyRequests},
		{"unauthorized", stage.MediationCause("auth", "denied", middleware.ErrUnauthorized), http.StatusUnauthorized},
		{"too large", stage.MediationCause("sizelimit", "too big", middleware.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{"deadline", stage.MediationCause("timeout", "expired", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"mediation", stage.Mediation("stream", "failed to read from input reader"), http.StatusBadGateway},
		{"wrapped not ready", stage.Wrap("stream", stage.NotReady("busy")), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped plain", fmt.Errorf("call: %w", stage.Wrap("stream", errors.New("boom"))), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transport.StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
