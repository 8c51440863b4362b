package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/pkg/reconcile"
)

// Default tracer name for vtree.
const defaultTracerName = "github.com/vango-dev/vtree"

// SpanName is the name of the span opened for each cycle.
const SpanName = "vtree.update"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider supplies the tracer. Default: otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Filter determines which cycles to trace.
	// Return true to trace the cycle, false to skip.
	// If nil, all cycles are traced.
	Filter func(c *reconcile.Cycle) bool

	// AttributeExtractor adds custom attributes once the cycle has run.
	AttributeExtractor func(c *reconcile.Cycle) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithCycleFilter sets a filter function for cycles.
func WithCycleFilter(filter func(c *reconcile.Cycle) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(c *reconcile.Cycle) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that opens a vtree.update span for every
// cycle.
//
// The span carries vtree.seq and vtree.mode from the start, and
// vtree.patches and vtree.applied once the cycle has run. Errors are
// recorded on the span along with vtree.error_kind, and the span status is
// set from the outcome. The span context is passed down the chain, so later
// middleware can attach child spans.
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Configure the global provider in main():
//
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) reconcile.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(c) {
			return next(ctx)
		}

		ctx, span := tracer.Start(ctx, SpanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.Int64("vtree.seq", int64(c.Seq)),
				attribute.String("vtree.mode", c.Mode.String()),
			),
		)
		defer span.End()

		err := next(ctx)

		span.SetAttributes(
			attribute.Int("vtree.patches", len(c.Patches)),
			attribute.Int("vtree.applied", c.Applied),
		)
		if config.AttributeExtractor != nil {
			span.SetAttributes(config.AttributeExtractor(c)...)
		}

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("vtree.error_kind", reconcile.KindName(err)))
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// SpanFromContext returns the cycle span stored in ctx by OpenTelemetry, or
// nil when ctx carries no recording span.
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() && !span.IsRecording() {
		return nil
	}
	return span
}
