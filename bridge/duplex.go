package bridge

import (
	"context"
	"errors"
)

// Errors reported by channel operations.
var (
	// ErrClosed is returned when the channel was closed by its sender, or a
	// send found the channel already closed.
	ErrClosed = errors.New("bridge: channel closed")
	// ErrPeerGone is returned when the peer finished without completing the
	// exchange.
	ErrPeerGone = errors.New("bridge: peer exited")
)

// Duplex is one end of a typed duplex channel.
// Whoever holds a Duplex owns its Send side and is responsible for closing it.
type Duplex[T any] struct {
	Recv <-chan T
	Send chan<- T
}

// NewDuplex creates two connected ends. Messages sent on one end's Send are
// received on the other's Recv; each direction buffers capacity messages.
func NewDuplex[T any](capacity int) (Duplex[T], Duplex[T]) {
	if capacity < 0 {
		capacity = 0
	}
	ab := make(chan T, capacity)
	ba := make(chan T, capacity)
	return Duplex[T]{Recv: ba, Send: ab}, Duplex[T]{Recv: ab, Send: ba}
}

// Receive waits for the next message on ch.
// It fails with ErrClosed when ch is closed, with ErrPeerGone when done is
// closed and nothing is buffered, and with ctx.Err() on cancellation.
// A nil done channel is never ready.
func Receive[T any](ctx context.Context, ch <-chan T, done <-chan struct{}) (T, error) {
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-done:
		// The peer may have sent just before finishing.
		select {
		case v, ok := <-ch:
			if !ok {
				return zero, ErrClosed
			}
			return v, nil
		default:
			return zero, ErrPeerGone
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Send delivers v on ch, waiting while the buffer is full.
// It fails with ErrClosed when ch has been closed, with ErrPeerGone when
// done is closed first, and with ctx.Err() on cancellation.
func Send[T any](ctx context.Context, ch chan<- T, v T, done <-chan struct{}) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrClosed
		}
	}()
	select {
	case ch <- v:
		return nil
	case <-done:
		return ErrPeerGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseSend closes ch, tolerating a channel that is already closed.
func CloseSend[T any](ch chan<- T) {
	if ch == nil {
		return
	}
	defer func() { _ = recover() }()
	close(ch)
}
