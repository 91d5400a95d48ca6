// ABOUTME: This file wires OpenTelemetry distributed tracing for the admin HTTP surface
// ABOUTME: Env-driven config, OTLP/HTTP exporter setup, and a no-op fallback when disabled
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls whether tracing is enabled and where spans are exported,
// following the teacher's own OTEL_*-prefixed environment variables.
type Config struct {
	ServiceName  string
	OTLPEndpoint string
	Enabled      bool
}

// ConfigFromEnv reads OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, and
// OTEL_ENABLED, defaulting to this service's own name, the standard local
// collector endpoint, and enabled.
func ConfigFromEnv() Config {
	cfg := Config{
		ServiceName:  "romarchive",
		OTLPEndpoint: "http://localhost:4318",
		Enabled:      true,
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Enabled = v != "false"
	}

	return cfg
}

// ShutdownFunc flushes and tears down whatever InitProvider started.
type ShutdownFunc func(ctx context.Context) error

// InitProvider installs a global OTLP/HTTP trace exporter and returns a
// shutdown function to flush it on process exit. When tracing is
// disabled, it installs nothing and returns a no-op shutdown so callers
// never need to branch on cfg.Enabled themselves.
func InitProvider(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build OTel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
