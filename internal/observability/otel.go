// Package observability sets up tracing export and the PvP domain metrics.
//
// Tracing is opt-in (OTEL_ENABLED). When on, the server ships three span
// sources to one OTLP/gRPC collector: otelgin request spans, the GORM plugin's
// query spans, and the service spans (services/AttackService,
// services/LimitsService, services/BattleLogService, services/DecayService).
// All of them share the resource built here, tagged with the service name,
// build version and APP_ENV.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-pvp-backend/internal/config"
)

// Swapped out in tests.
var (
	newCollectorClient = otlptracegrpc.NewClient

	newSpanExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newPvPResource = func(ctx context.Context, serviceName, version, appEnv string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
			semconv.DeploymentEnvironment(appEnv),
		))
	}
)

// collectorOptions points the gRPC client at the collector. TLS uses the
// system roots unless OTEL_EXPORTER_OTLP_INSECURE is set.
func collectorOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	transport := otlptracegrpc.WithInsecure()
	if !cfg.Insecure {
		transport = otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	}
	return []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint), transport}
}

// rootSampler picks the sampler for traces that start here. Requests that
// arrive with a sampled traceparent stay sampled.
func rootSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// SetupOTel installs the global tracer provider and W3C propagators and
// returns the provider's shutdown, which flushes pending spans. With tracing
// disabled nothing global changes and shutdown is a no-op.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version, appEnv string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newSpanExporter(ctx, newCollectorClient(collectorOptions(cfg)...))
	if err != nil {
		return nil, err
	}
	res, err := newPvPResource(ctx, cfg.ServiceName, version, appEnv)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(rootSampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return provider.Shutdown, nil
}
