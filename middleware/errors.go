package middleware

import "errors"

// Rejection causes. Middleware that refuses a call returns a mediation
// *stage.LayerError whose cause matches one of these with errors.Is.
var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrTooLarge     = errors.New("request too large")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDraining     = errors.New("stage is draining")
	ErrAtCapacity   = errors.New("concurrency limit reached")
)
