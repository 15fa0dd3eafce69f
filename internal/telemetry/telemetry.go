// Package telemetry configures OpenTelemetry tracing for ragd.
//
// When enabled, a TracerProvider with an OTLP exporter (gRPC or
// HTTP/protobuf) is installed globally so the spans emitted by the retrieval
// pipeline reach the configured collector. When disabled, the default no-op
// provider stays in place and span creation is free.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config holds tracing configuration.
type Config struct {
	// Enabled turns tracing on.
	Enabled bool `koanf:"enabled"`
	// ServiceName is reported as the otel service.name resource attribute.
	ServiceName string `koanf:"service_name"`
	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `koanf:"endpoint"`
	// Protocol selects the exporter transport: "grpc" (default) or
	// "http/protobuf".
	Protocol string `koanf:"protocol"`
	// Insecure disables TLS on the exporter connection.
	Insecure bool `koanf:"insecure"`
	// SampleRate is the trace sampling ratio in [0,1]. Default: 1.
	SampleRate float64 `koanf:"sample_rate"`
}

// Setup installs a global TracerProvider per config. The returned shutdown
// function flushes pending spans; it is a no-op when tracing is disabled.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	var exporter trace.SpanExporter
	var err error
	switch cfg.Protocol {
	case "http/protobuf":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	sampler := trace.AlwaysSample()
	if cfg.SampleRate > 0 && cfg.SampleRate < 1 {
		sampler = trace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(sampler)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// stripScheme removes http:// or https:// from an endpoint. OTLP exporters
// expect host:port.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint
}
