// Package telemetry configures the global OpenTelemetry tracer
// provider. Export is opt-in via OTEL_TRACES_EXPORTER; without it the
// default no-op provider stays in place and spans cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SetupTracing installs a tracer provider per OTEL_TRACES_EXPORTER
// ("stdout", "otlp", or unset for none) and returns its shutdown
// function.
func SetupTracing(ctx context.Context) (func(context.Context) error, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch exporter := os.Getenv("OTEL_TRACES_EXPORTER"); exporter {
	case "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		// Endpoint and headers come from the standard OTEL_EXPORTER_*
		// environment variables.
		exp, err = otlptracehttp.New(ctx)
	case "", "none":
		return func(context.Context) error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown OTEL_TRACES_EXPORTER %q", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
