package statemachine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startRunSpan creates the root span for one Run.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startRunSpan(ctx context.Context, machine, initial, recovery string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.run")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("initial_state", initial),
		attribute.String("recovery_state", recovery),
	)

	return ctx, span
}

// startStateSpan creates a child span for one state execution.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startStateSpan(ctx context.Context, machine, state string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "state."+state)
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("state", state),
	)

	return ctx, span
}

func endSpan(span trace.Span, elapsed time.Duration, err error) {
	if elapsed > 0 {
		span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}
