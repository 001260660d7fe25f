package stage

import "errors"

// Kind classifies a LayerError.
type Kind uint8

const (
	// KindMediation marks a failure the layer detected itself: a closed peer,
	// a zero-length read, a failed join.
	KindMediation Kind = iota + 1
	// KindWrapped marks an error returned by the wrapped stage, passed through
	// unchanged.
	KindWrapped
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMediation:
		return "mediation"
	case KindWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// LayerError distinguishes a layer's own mediation failures from failures
// surfaced by the stage it wraps.
type LayerError struct {
	Kind Kind
	// Layer names the adapter that produced the error.
	Layer string
	// Msg is a static description of a mediation failure.
	Msg string
	// Err is the wrapped stage's error for KindWrapped, or the underlying
	// cause of a mediation failure when there is one.
	Err error
}

// Sentinels matched by errors.Is on kind alone.
var (
	ErrMediation = &LayerError{Kind: KindMediation}
	ErrWrapped   = &LayerError{Kind: KindWrapped}
)

// Error implements the error interface.
func (e *LayerError) Error() string {
	prefix := e.Layer
	if prefix == "" {
		prefix = "layer"
	}
	switch e.Kind {
	case KindWrapped:
		if e.Err == nil {
			return prefix + ": inner stage failed"
		}
		return prefix + ": " + e.Err.Error()
	default:
		if e.Err != nil {
			return prefix + ": " + e.Msg + ": " + e.Err.Error()
		}
		return prefix + ": " + e.Msg
	}
}

// Unwrap returns the wrapped error or the mediation cause.
func (e *LayerError) Unwrap() error { return e.Err }

// Is reports whether target is a LayerError of the same kind. A target with a
// Layer or Msg set must match those too.
func (e *LayerError) Is(target error) bool {
	t, ok := target.(*LayerError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Layer != "" && t.Layer != e.Layer {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

// Mediation creates a mediation failure raised by layer.
func Mediation(layer, msg string) *LayerError {
	return &LayerError{Kind: KindMediation, Layer: layer, Msg: msg}
}

// MediationCause creates a mediation failure that keeps its underlying cause
// reachable through errors.Is and errors.As.
func MediationCause(layer, msg string, cause error) *LayerError {
	return &LayerError{Kind: KindMediation, Layer: layer, Msg: msg, Err: cause}
}

// Wrap marks err as returned by the stage wrapped by layer. Wrap returns nil
// when err is nil.
func Wrap(layer string, err error) error {
	if err == nil {
		return nil
	}
	return &LayerError{Kind: KindWrapped, Layer: layer, Err: err}
}

// KindOf returns the kind of the outermost LayerError in err's chain, or zero
// if there is none.
func KindOf(err error) Kind {
	var le *LayerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// IsMediation reports whether the outermost LayerError in err is a mediation failure.
func IsMediation(err error) bool { return KindOf(err) == KindMediation }

// IsWrapped reports whether the outermost LayerError in err wraps an inner stage error.
func IsWrapped(err error) bool { return KindOf(err) == KindWrapped }

// Inner strips every wrapping LayerError from the front of err's chain and
// returns the first error that is not a KindWrapped LayerError.
func Inner(err error) error {
	for {
		le, ok := err.(*LayerError)
		if !ok || le.Kind != KindWrapped {
			return err
		}
		err = le.Err
	}
}
