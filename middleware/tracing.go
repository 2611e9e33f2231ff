package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/liftoffhq/outreach"
)

// tracerName is the instrumentation scope name for outreach tracing.
const tracerName = "github.com/liftoffhq/outreach"

// Tracing returns middleware that wraps each provider call in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: outreach.action, outreach.provider,
// outreach.lead.id. On error, the span status is set to codes.Error
// with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, a *outreach.Action, next Handler) error {
		ctx, span := tracer.Start(ctx, "outreach.action.execute",
			trace.WithAttributes(
				attribute.String("outreach.action", a.Name),
				attribute.String("outreach.provider", a.Provider),
				attribute.String("outreach.lead.id", a.LeadID.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
