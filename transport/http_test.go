package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/stack-go/adapter"
	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/testutil"
	"github.com/felixgeelhaar/stack-go/transport"
)

func post(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/call", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHTTP(t *testing.T) {
	h := transport.NewHTTP(":8080", transport.WithReadTimeout(5*time.Second))

	if h.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", h.Addr())
	}
	if h.ListenAddr() != "" {
		t.Errorf("ListenAddr() = %q before Serve, want empty", h.ListenAddr())
	}
}

func TestHTTP_Call(t *testing.T) {
	t.Run("answers with the stage's reply", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(upper())

		rec := post(t, h, "hello", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if rec.Body.String() != "HELLO" {
			t.Errorf("body = %q, want HELLO", rec.Body.String())
		}
	})

	t.Run("serves adapted stacks", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(adapter.Stream()(upper()))

		rec := post(t, h, "abc", nil)

		if rec.Body.String() != "ABC" {
			t.Errorf("body = %q, want ABC", rec.Body.String())
		}
	})

	t.Run("echoes request ID", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(upper())

		rec := post(t, h, "x", map[string]string{"X-Request-ID": "req-42"})

		if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
			t.Errorf("X-Request-ID = %q, want req-42", got)
		}
	})

	t.Run("rejects other methods", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(upper())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/call", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("maps stage errors to status codes", func(t *testing.T) {
		logger := &testutil.RecordingLogger{}
		h := transport.NewHTTP(":0", transport.WithHTTPLogger(logger)).
			Handler(testutil.Failing[bridge.Conn, struct{}](errors.New("boom")))

		rec := post(t, h, "x", nil)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if len(logger.Find("exchange failed")) != 1 {
			t.Errorf("entries = %v, want one failed exchange", logger.Entries())
		}
	})

	t.Run("empty body is a mediation failure", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(adapter.Stream()(upper()))

		rec := post(t, h, "", nil)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		h := transport.NewHTTP(":0").Handler(notReady[bridge.Conn]{})

		rec := post(t, h, "x", nil)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("authenticates from headers", func(t *testing.T) {
		auth := middleware.Auth[bridge.Conn, struct{}](middleware.APIKeyAuthenticator("X-API-Key",
			middleware.StaticAPIKeys(map[string]*middleware.Identity{"secret": {ID: "ci"}})))
		h := transport.NewHTTP(":0").Handler(auth(upper()))

		if rec := post(t, h, "x", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("without key: status = %d, want 401", rec.Code)
		}
		if rec := post(t, h, "x", map[string]string{"X-API-Key": "secret"}); rec.Code != http.StatusOK {
			t.Errorf("with key: status = %d, want 200", rec.Code)
		}
	})
}

func TestHTTP_Health(t *testing.T) {
	tests := []struct {
		name string
		h    http.Handler
		code int
	}{
		{"ready", transport.NewHTTP(":0").Handler(upper()), http.StatusOK},
		{"not ready", transport.NewHTTP(":0").Handler(notReady[bridge.Conn]{}), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] == "" {
				t.Error("expected status in body")
			}
		})
	}
}

func TestHTTP_CORS(t *testing.T) {
	h := transport.NewHTTP(":0", transport.WithDefaultCORS()).Handler(upper())

	req := httptest.NewRequest(http.MethodOptions, "/call", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestHTTP_Serve(t *testing.T) {
	h := transport.NewHTTP("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Serve(ctx, upper())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.ListenAddr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post("http://"+h.ListenAddr()+"/call", "text/plain", strings.NewReader("served"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if string(body) != "SERVED" {
		t.Errorf("body = %q, want SERVED", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
