// Package tracing installs the OpenTelemetry tracer provider used by the
// query spans.
package tracing

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

const serviceName = "order-query"

// NewProvider returns nil for "off". For "stdout" it returns a provider that
// writes finished spans to w as JSON.
func NewProvider(mode string, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch mode {
	case "", "off":
		return nil, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", mode)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}
	res := resource.NewSchemaless(semconv.ServiceNameKey.String(serviceName))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	), nil
}

// Install sets tp as the global provider and returns its shutdown func.
// A nil tp leaves the no-op provider in place.
func Install(tp *sdktrace.TracerProvider) func(context.Context) error {
	if tp == nil {
		return func(context.Context) error { return nil }
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
