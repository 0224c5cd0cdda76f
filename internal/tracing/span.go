package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartSeriesSpan starts the root span covering a whole run.
func StartSeriesSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	spanName := "series"
	if name != "" {
		spanName = "series " + name
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	if name != "" {
		span.SetAttributes(attribute.String("ratbench.series", name))
	}
	return ctx, span
}

// StartRoundSpan starts a span for one burst within a series.
func StartRoundSpan(ctx context.Context, tracer trace.Tracer, index, total int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("round %d/%d", index, total),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.Int("ratbench.round", index),
		attribute.Int("ratbench.rounds", total),
	)
	return ctx, span
}

// StartProbeSpan starts a client span for a single timed request.
func StartProbeSpan(ctx context.Context, tracer trace.Tracer) (context.Context, trace.Span) {
	return tracer.Start(ctx, "probe",
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
