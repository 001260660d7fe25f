package middleware

import "go.uber.org/zap"

// ZapLogger adapts a *zap.Logger to Logger.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a Logger backed by l. A nil l falls back to the
// global zap logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.L()
	}
	return &ZapLogger{logger: l}
}

func (z *ZapLogger) Info(msg string, fields ...Field) {
	z.logger.Info(msg, zapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, fields ...Field) {
	z.logger.Error(msg, zapFields(fields)...)
}

func (z *ZapLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug(msg, zapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn(msg, zapFields(fields)...)
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
