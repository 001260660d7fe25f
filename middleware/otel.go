package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/stack-go/stage"
)

const (
	instrumentationName = "github.com/felixgeelhaar/stack-go"
)

// OTelOption configures OTel.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
}

// WithTracerProvider sets the tracer provider. Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *otelConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return func(c *otelConfig) {
		c.meterProvider = mp
	}
}

// WithOTelServiceName sets the service.name attribute recorded on spans and
// metrics of the process hosting the stage. Default: "stack".
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// OTel returns middleware that adds OpenTelemetry tracing and metrics to the
// named stage. It creates a span per call and records call counts, latency
// and errors by kind.
func OTel[I, O any](name string, opts ...OTelOption) stage.Middleware[I, O] {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "stack",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion("1.0.0"),
	)

	meter := cfg.meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion("1.0.0"),
	)

	callCounter, _ := meter.Int64Counter(
		"stage.calls",
		metric.WithDescription("Total number of stage calls"),
		metric.WithUnit("{call}"),
	)

	callDuration, _ := meter.Float64Histogram(
		"stage.call.duration",
		metric.WithDescription("Duration of stage calls"),
		metric.WithUnit("ms"),
	)

	errorCounter, _ := meter.Int64Counter(
		"stage.errors",
		metric.WithDescription("Total number of failed stage calls"),
		metric.WithUnit("{error}"),
	)

	spanName := "stage." + name

	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			ctx, span := tracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("stage.name", name),
					attribute.String("service.name", cfg.serviceName),
				),
			)
			defer span.End()

			if reqID := RequestIDFromContext(ctx); reqID != "" {
				span.SetAttributes(attribute.String("stage.request_id", reqID))
			}

			startTime := time.Now()

			attrs := []attribute.KeyValue{
				attribute.String("stage.name", name),
				attribute.String("service.name", cfg.serviceName),
			}

			callCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

			out, err := next.Call(ctx, in)

			duration := float64(time.Since(startTime).Milliseconds())
			callDuration.Record(ctx, duration, metric.WithAttributes(attrs...))

			if err != nil {
				kind := stage.KindOf(err).String()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.String("stage.error_kind", kind))
				errorCounter.Add(ctx, 1, metric.WithAttributes(
					append(attrs, attribute.String("stage.error_kind", kind))...,
				))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return out, err
		})
	}
}

// SpanFromContext returns the span of the current call, or a no-op span
// outside OTel.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent records an event on the span of the current call.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
