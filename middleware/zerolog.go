package middleware

import "github.com/rs/zerolog"

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger creates a Logger backed by l.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: l}
}

func (z *ZerologLogger) Info(msg string, fields ...Field) {
	withFields(z.logger.Info(), fields).Msg(msg)
}

func (z *ZerologLogger) Error(msg string, fields ...Field) {
	withFields(z.logger.Error(), fields).Msg(msg)
}

func (z *ZerologLogger) Debug(msg string, fields ...Field) {
	withFields(z.logger.Debug(), fields).Msg(msg)
}

func (z *ZerologLogger) Warn(msg string, fields ...Field) {
	withFields(z.logger.Warn(), fields).Msg(msg)
}

func withFields(event *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	return event
}
