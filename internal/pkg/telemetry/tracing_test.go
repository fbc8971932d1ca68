package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

func TestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, end := telemetry.StartSpan(context.Background(), "pins.visible", telemetry.AttrViewerID.String("u1"))
	_, endDB := telemetry.StartDBSpan(ctx, "travel_pins", "select")
	endDB(errors.New("boom"))
	end(nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	db := spans[0]
	if db.Name() != "select travel_pins" {
		t.Errorf("unexpected db span name %q", db.Name())
	}
	if db.Status().Code != codes.Error {
		t.Errorf("expected error status on db span, got %v", db.Status().Code)
	}
	if db.Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("db span should be a child of the outer span")
	}
	if spans[1].Status().Code == codes.Error {
		t.Error("outer span should not be marked failed")
	}
}
