// Package transport feeds stage stacks from the outside world.
//
// Each transport turns incoming traffic into endpoints for the outermost
// stage of a stack and calls it once per exchange.
//
// # Stdio Transport
//
// Stdio serves a byte stage over stdin and stdout until stdin is exhausted:
//
//	t := transport.NewStdio()
//	err := t.Serve(ctx, adapter.Stream()(terminal))
//
// # HTTP Transport
//
// HTTP serves a byte stage, one exchange per request:
//
//	t := transport.NewHTTP(":8080",
//	    transport.WithReadTimeout(30*time.Second),
//	    transport.WithDefaultCORS(),
//	)
//	err := t.Serve(ctx, s)
//
// Endpoints:
//   - POST /call runs one exchange with the request body
//   - GET /health reports whether the stage is ready
//
// Request headers become call metadata, so middleware.Auth can read API keys
// and bearer tokens from them. Failures are mapped to status codes by
// StatusCode.
//
// # WebSocket Transport
//
// WebSocket serves a handler stage. Every connection becomes a ConnHandler
// exchanging JSON messages, and the stage is called with it until the peer
// goes away:
//
//	t := transport.NewWebSocket[uint32](":8080")
//	err := t.Serve(ctx, adapter.Handler(adapter.Sum[uint32])(inner))
//
// DialHandler connects the client side, which can then be injected into a
// stack with adapter.Injected.
package transport
