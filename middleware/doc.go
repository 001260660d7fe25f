// Package middleware provides stage middleware: layers that keep a stage's
// request and response types and add behavior around every call.
//
// Each middleware wraps the next stage in the stack, allowing pre- and
// post-processing of calls. Ready is delegated to the wrapped stage unless
// the middleware itself can run out of capacity.
//
// # Basic Usage
//
// Create and compose middleware:
//
//	chain := stage.Chain(
//	    middleware.Recover[[]byte, []byte](),
//	    middleware.RequestID[[]byte, []byte](),
//	    middleware.Logging[[]byte, []byte](logger, "echo"),
//	)
//	s := chain(echo)
//
// # Available Middleware
//
//   - Recover: Catches panics and converts them to mediation failures
//   - RequestID: Injects unique request IDs into the context
//   - Timeout: Enforces call deadlines
//   - Logging: Logs call details, timing and error kind
//   - OTel: Traces calls and records call metrics
//   - RateLimit: Token bucket rate limiting
//   - ConcurrencyLimit: Bounds in-flight calls and reports readiness
//   - SizeLimit, ChunkLimit: Reject oversized requests
//   - Auth: Authenticates calls from context metadata
//   - Drain: Rejects new calls while a Drainer shuts down
//
// Middleware that refuses a call returns a mediation *stage.LayerError. Its
// cause is one of the package's sentinel errors, so callers can test for it
// with errors.Is.
//
// # Default Stacks
//
//	// Recover + RequestID + Logging
//	mws := middleware.DefaultStack[[]byte, []byte](logger, "echo")
//
//	// Recover + RequestID + Timeout + Logging
//	mws := middleware.DefaultStackWithTimeout[[]byte, []byte](logger, "echo", 30*time.Second)
//
// # Loggers
//
// Logger is a small structured logging interface. NewZerologLogger and
// NewZapLogger adapt the two common backends; NopLogger discards everything.
package middleware
