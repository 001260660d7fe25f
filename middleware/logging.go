package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

// Logger receives structured log entries from middleware and transports.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field is one key-value pair of a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logging returns middleware that logs every call to the named stage.
// Successful calls are logged at info level. Failures are logged at error
// level together with the error kind, so mediation failures can be told
// apart from errors raised by the stage itself.
func Logging[I, O any](logger Logger, name string) stage.Middleware[I, O] {
	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			start := time.Now()

			out, err := next.Call(ctx, in)

			fields := []Field{
				F("stage", name),
				F("duration", time.Since(start)),
			}
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields = append(fields, F("request_id", requestID))
			}

			if err != nil {
				fields = append(fields,
					F("error", err.Error()),
					F("error_kind", stage.KindOf(err).String()),
				)
				logger.Error("call failed", fields...)
			} else {
				logger.Info("call completed", fields...)
			}

			return out, err
		})
	}
}

// NopLogger discards every entry.
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
