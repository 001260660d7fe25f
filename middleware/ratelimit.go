package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/stack-go/stage"
)

const rateLimitLayer = "ratelimit"

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(context.Context) string
	logger  Logger
}

// WithRateLimitKeyFunc sets a function to extract a rate limit key from the
// call context. This allows per-client or per-tenant rate limiting.
func WithRateLimitKeyFunc(fn func(context.Context) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit returns middleware that limits the call rate using a token bucket.
// The rate is specified as calls per second.
// Burst allows short bursts above the rate limit.
// Rejected calls fail with a mediation error whose cause is ErrRateLimited.
func RateLimit[I, O any](rate int, burst int, opts ...RateLimitOption) stage.Middleware[I, O] {
	cfg := &rateLimitConfig{
		keyFunc: func(context.Context) string { return "global" },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			key := cfg.keyFunc(ctx)

			if !limiter.Allow(ctx, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("rate limit exceeded", F("key", key))
				}
				var zero O
				return zero, stage.MediationCause(rateLimitLayer, "call rejected", ErrRateLimited)
			}

			return next.Call(ctx, in)
		})
	}
}

// RateLimitByClient returns rate limiting middleware that applies per-client limits.
// The client identifier is the authenticated identity's ID when present,
// otherwise the "client" metadata value.
func RateLimitByClient[I, O any](rate int, burst int, opts ...RateLimitOption) stage.Middleware[I, O] {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(clientKey),
	}, opts...)
	return RateLimit[I, O](rate, burst, allOpts...)
}

func clientKey(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil && id.ID != "" {
		return id.ID
	}
	if client := MetadataValue(ctx, "client"); client != "" {
		return client
	}
	return "anonymous"
}
