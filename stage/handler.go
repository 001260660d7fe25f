package stage

import "context"

// Handler is a stateful endpoint exchanging messages of type M.
//
// Handlers are used by layers that mediate through an object rather than a
// stream. A Handler shared between goroutines must be internally
// synchronized; the contract itself promises nothing beyond that messages may
// be handed between goroutines.
type Handler[M any] interface {
	Send(ctx context.Context, msg M) error
	Receive(ctx context.Context) (M, error)
}
