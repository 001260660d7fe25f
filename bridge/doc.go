// Package bridge provides the per-call primitives adapters use to talk to a
// wrapped stage running on its own goroutine.
//
//   - Pipe and Simplex: bounded in-memory byte pipes with independently
//     closable halves, exposed as a Conn.
//   - NewDuplex: a pair of bounded typed channels, with Receive and Send
//     helpers that turn closure and peer exit into errors instead of hangs
//     or panics.
//   - Go and Task: a goroutine whose result, including a recovered panic,
//     is joined with Wait.
//
// Every primitive is created fresh for a single call and dropped when the
// call completes.
package bridge
