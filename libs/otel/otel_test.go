package otelx

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	ctx := ContextWithTraceContext(context.Background(), tp, "")
	got, _ := TraceContextStrings(ctx)
	if got != tp {
		t.Fatalf("expected %s, got %s", tp, got)
	}
	if ctx := ContextWithTraceContext(context.Background(), "", ""); ctx != context.Background() {
		t.Fatalf("empty trace context should return ctx unchanged")
	}
}

func TestEndSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, span := StartSpan(context.Background(), "test", "op")
	EndSpan(span, errors.New("boom"))

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != "op" {
		t.Fatalf("expected one ended span, got %d", len(ended))
	}
	if ended[0].Status().Description != "boom" {
		t.Fatalf("expected error status, got %+v", ended[0].Status())
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "x"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
