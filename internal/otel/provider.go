// Package otel exports the spans stitch records while rendering module
// previews.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup registers a global TracerProvider that sends the preview server's
// spans, including the Renderer's stitch.Render and stitch.RenderModule
// spans, to the OTLP/HTTP collector at endpoint.
//
// Nothing is registered unless enabled is true and endpoint is set; the
// Renderer then records spans against the global no-op provider.
//
// The returned func flushes buffered spans and stops the exporter. It's
// always safe to call.
func Setup(ctx context.Context, serviceName, endpoint string, enabled bool) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !enabled || endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, fmt.Errorf("create trace exporter for %s: %w", endpoint, err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, fmt.Errorf("describe %s for tracing: %w", serviceName, err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	// propagate incoming trace context so previews join the editor's trace
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return provider.Shutdown, nil
}
