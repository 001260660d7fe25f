package adapter

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/stage"
)

const msgJoin = "inner stage task failed"

// mediation builds a mediation failure. A cancelled context is reported as
// the cause in place of the I/O error it provoked.
func mediation(ctx context.Context, layer, msg string, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = ctxErr
	}
	return stage.MediationCause(layer, msg, cause)
}

// joinResult merges the adapter's own outcome with the joined inner task.
// A task that panicked itself is a mediation failure. Any error the inner
// stage returned is wrapped, even one recording a panic further down.
// When the exchange already failed, an inner cancellation caused by the
// adapter is dropped and any other inner error is joined after the
// mediation failure.
func joinResult(layer string, err, joinErr error) error {
	var joined error
	_, panicked := joinErr.(*bridge.PanicError)
	switch {
	case joinErr == nil:
	case panicked:
		joined = stage.MediationCause(layer, msgJoin, joinErr)
	case err != nil && errors.Is(joinErr, context.Canceled):
	default:
		joined = stage.Wrap(layer, joinErr)
	}

	switch {
	case err == nil:
		return joined
	case joined == nil:
		return err
	default:
		return errors.Join(err, joined)
	}
}
