package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

const drainLayer = "drain"

// DrainConfig configures graceful draining.
type DrainConfig struct {
	// Timeout is the maximum time to wait for in-flight calls to complete.
	// Default: 30 seconds
	Timeout time.Duration

	// PollInterval is how often in-flight calls are checked while draining.
	// Default: 50 milliseconds
	PollInterval time.Duration

	// OnDrainStart is called when draining begins.
	OnDrainStart func()

	// OnDrainComplete is called when draining is complete.
	OnDrainComplete func(err error)
}

// Drainer tracks in-flight calls to the stages it guards and lets them finish
// before shutdown. Once draining starts, guarded stages report not ready and
// reject new calls.
type Drainer struct {
	config DrainConfig

	draining  atomic.Bool
	inFlight  atomic.Int64
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewDrainer creates a new drainer.
func NewDrainer(config DrainConfig) *Drainer {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 50 * time.Millisecond
	}
	return &Drainer{
		config: config,
		doneCh: make(chan struct{}),
	}
}

// IsDraining returns true once Shutdown has been called.
func (d *Drainer) IsDraining() bool {
	return d.draining.Load()
}

// InFlight returns the number of in-flight calls.
func (d *Drainer) InFlight() int64 {
	return d.inFlight.Load()
}

func (d *Drainer) track() bool {
	d.inFlight.Add(1)
	if d.draining.Load() {
		d.inFlight.Add(-1)
		return false
	}
	return true
}

func (d *Drainer) complete() {
	d.inFlight.Add(-1)
}

// Shutdown starts draining and returns when all in-flight calls complete or
// the timeout is reached.
func (d *Drainer) Shutdown(ctx context.Context) error {
	d.draining.Store(true)
	if d.config.OnDrainStart != nil {
		d.config.OnDrainStart()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	var err error
wait:
	for d.inFlight.Load() > 0 {
		select {
		case <-timeoutCtx.Done():
			if d.inFlight.Load() > 0 {
				err = timeoutCtx.Err()
			}
			break wait
		case <-ticker.C:
		}
	}

	d.closeOnce.Do(func() {
		close(d.doneCh)
	})

	if d.config.OnDrainComplete != nil {
		d.config.OnDrainComplete(err)
	}

	return err
}

// Done returns a channel that is closed when draining is complete.
func (d *Drainer) Done() <-chan struct{} {
	return d.doneCh
}

// Drain returns middleware that registers calls with d. While d is draining
// Ready reports stage.ErrNotReady and Call fails with a mediation error whose
// cause is ErrDraining.
func Drain[I, O any](d *Drainer) stage.Middleware[I, O] {
	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return &drainStage[I, O]{next: next, drainer: d}
	}
}

type drainStage[I, O any] struct {
	next    stage.Stage[I, O]
	drainer *Drainer
}

func (s *drainStage[I, O]) Ready(ctx context.Context) error {
	if s.drainer.IsDraining() {
		return stage.NotReady("draining")
	}
	return s.next.Ready(ctx)
}

func (s *drainStage[I, O]) Call(ctx context.Context, in I) (O, error) {
	if !s.drainer.track() {
		var zero O
		return zero, stage.MediationCause(drainLayer, "call rejected", ErrDraining)
	}
	defer s.drainer.complete()

	return s.next.Call(ctx, in)
}
