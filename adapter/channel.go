package adapter

import (
	"context"

	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/stage"
)

const channelLayer = "channel"

// Channel mediation failures.
const (
	msgRecvInput  = "failed to receive message from input receiver"
	msgSendInner  = "failed to send message to inner stage"
	msgRecvInner  = "failed to receive response from inner stage"
	msgSendCaller = "failed to send response to caller"
)

// DefaultChannelCapacity is the per-direction buffer of the typed bridge.
const DefaultChannelCapacity = 1

// ChannelOption configures the channel adapter.
type ChannelOption func(*channelConfig)

type channelConfig struct {
	capacity int
}

// WithCapacity sets the per-direction buffer of the channels created for the
// inner stage. Default: DefaultChannelCapacity.
func WithCapacity(n int) ChannelOption {
	return func(c *channelConfig) {
		if n >= 0 {
			c.capacity = n
		}
	}
}

// Channel returns a layer that bridges the caller's typed duplex channel to a
// fresh duplex channel of another message type handed to the inner stage.
// into converts caller messages for the inner stage; from converts replies
// back.
//
// Like Stream, each call performs exactly one exchange and joins the inner
// stage before returning. The adapter owns the Send side of the duplex it is
// given and closes it when the call ends.
func Channel[A, B any](into func(A) B, from func(B) A, opts ...ChannelOption) stage.Layer[bridge.Duplex[A], struct{}, bridge.Duplex[B], struct{}] {
	cfg := channelConfig{capacity: DefaultChannelCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(inner stage.Stage[bridge.Duplex[B], struct{}]) stage.Stage[bridge.Duplex[A], struct{}] {
		return &channelStage[A, B]{inner: inner, into: into, from: from, cfg: cfg}
	}
}

type channelStage[A, B any] struct {
	inner stage.Stage[bridge.Duplex[B], struct{}]
	into  func(A) B
	from  func(B) A
	cfg   channelConfig
}

func (s *channelStage[A, B]) Ready(ctx context.Context) error {
	return stage.Wrap(channelLayer, s.inner.Ready(ctx))
}

func (s *channelStage[A, B]) Call(ctx context.Context, d bridge.Duplex[A]) (struct{}, error) {
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ours, theirs := bridge.NewDuplex[B](s.cfg.capacity)
	task := bridge.Go(func() (struct{}, error) {
		defer bridge.CloseSend(theirs.Send)
		return s.inner.Call(innerCtx, theirs)
	})

	err := s.exchange(ctx, d, ours, task.Done())
	if err != nil {
		cancel()
	}
	bridge.CloseSend(d.Send)
	bridge.CloseSend(ours.Send)

	_, joinErr := task.Wait()
	return struct{}{}, joinResult(channelLayer, err, joinErr)
}

func (s *channelStage[A, B]) exchange(ctx context.Context, caller bridge.Duplex[A], inner bridge.Duplex[B], done <-chan struct{}) error {
	msg, err := bridge.Receive(ctx, caller.Recv, nil)
	if err != nil {
		return mediation(ctx, channelLayer, msgRecvInput, err)
	}
	if err := bridge.Send(ctx, inner.Send, s.into(msg), done); err != nil {
		return mediation(ctx, channelLayer, msgSendInner, err)
	}

	resp, err := bridge.Receive(ctx, inner.Recv, done)
	if err != nil {
		return mediation(ctx, channelLayer, msgRecvInner, err)
	}
	if err := bridge.Send(ctx, caller.Send, s.from(resp), nil); err != nil {
		return mediation(ctx, channelLayer, msgSendCaller, err)
	}
	return nil
}
