// Package telemetry wraps the pipeline stages (router, dispatcher, wrapper,
// aggregator, engine) in OpenTelemetry spans. Provider/exporter bootstrap
// lives in observability.InitOTel; this package only acquires the global
// tracer and threads the request id through span attributes.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/seiggy/lucia/orchestrator"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

type requestIDKey struct{}

// ContextWithRequestID attaches the Engine's per-request id to ctx so every
// StartSpan call downstream tags its span without each stage needing its own
// copy of the id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// StartSpan begins a span for a pipeline stage, tagging it with the
// request-scoped request_id (if present on ctx) so traces can be correlated
// with observer events.
func StartSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer().Start(ctx, stage, trace.WithAttributes(
		attribute.String("lucia.request_id", requestIDFromContext(ctx)),
	))
}

// EndSpan finishes span, recording err (if any) as the span status.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
