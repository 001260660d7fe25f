// Package adapter provides reference layers that bridge a stage's external
// representation to the representation its inner stage expects.
//
// # Available Adapters
//
//   - Basic: converts the request value and forwards it synchronously.
//   - Stream: relays one chunk each way between the caller's byte connection
//     and a fresh pipe to the inner stage, transforming the bytes.
//   - Channel: the same exchange over typed channels, converting message
//     types at the boundary.
//   - Handler: obtains a handler from the inner stage per call and drives a
//     short exchange between it and the caller's handler.
//   - Injected: mediates every call through one handler fixed at
//     construction.
//
// Stream and Channel run the inner stage on its own goroutine and always
// join it before returning. Their failures are reported as
// *stage.LayerError: mediation failures for closed peers, empty reads and
// panicked inner stages, wrapped errors for whatever the inner stage returns.
//
// # Usage
//
//	s := stage.Compose(
//	    adapter.Stream(adapter.WithBufferSize(4096)),
//	    adapter.Stream(),
//	)(terminal)
//
//	caller, end := bridge.Pipe(bridge.DefaultBufferSize)
//	go s.Call(ctx, end)
package adapter
