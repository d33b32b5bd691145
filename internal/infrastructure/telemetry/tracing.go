package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of pipeline spans
const TracerName = "github.com/erp/unify"

// Span attribute keys
const (
	AttrRunID      = attribute.Key("unify.run_id")
	AttrSourceFile = attribute.Key("unify.source_file")
	AttrEntity     = attribute.Key("unify.entity")
	AttrStage      = attribute.Key("unify.stage")
	AttrCause      = attribute.Key("unify.cause")
	AttrRowsIn     = attribute.Key("unify.rows_in")
	AttrRowsOut    = attribute.Key("unify.rows_out")
)

// StartSpan starts an internal span on the global tracer provider
//
//	ctx, span := telemetry.StartSpan(ctx, "pipeline.customers", telemetry.AttrEntity.String("customer"))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// StartStage starts the span of one pipeline stage, named pipeline.<stage>
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("pipeline.%s", stage), append(attrs, AttrStage.String(stage))...)
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// EndSpan records err, if any, and ends the span. It suits a deferred call
// over a named error result.
func EndSpan(span trace.Span, err *error) {
	if err != nil {
		RecordError(span, *err)
	}
	span.End()
}
