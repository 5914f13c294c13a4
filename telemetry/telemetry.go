// Package telemetry wires OpenTelemetry tracing for the daemon. Spans are
// produced by the state machine runner (one per run, one per state visit) and
// by the remote client (one per device call), and exported over OTLP/HTTP when
// OTEL_ENABLED is set.
//
// The control loop never ends, so a long run produces an unbounded stream of
// state and device spans. OTEL_TRACES_SAMPLER_ARG keeps a fraction of them.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/chamber/envutil"
	"github.com/amp-labs/chamber/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second
	defaultSampleRatio    = 1.0

	localCollectorEndpoint = "http://localhost:4318"
)

var (
	mut            sync.Mutex               //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	Timeout        time.Duration
	// SampleRatio is the fraction of root spans kept, in [0, 1]. Children
	// follow their parent's decision.
	SampleRatio float64
	// Attributes are added to the resource, e.g. the chamber being driven.
	Attributes []attribute.KeyValue
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment variables.
// Tracing is off unless OTEL_ENABLED is true and an endpoint is known.
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	enabled := envutil.Bool(ctx, "OTEL_ENABLED",
		envutil.Default(false)).
		ValueOrElse(false)

	// A collector running next to the daemon is the common deployment.
	defaultEndpoint := ""
	if envutil.Bool(ctx, "OTEL_LOCAL_COLLECTOR", envutil.Default(false)).ValueOrElse(false) {
		defaultEndpoint = localCollectorEndpoint
	}

	serviceName := logger.GetSubsystem(ctx)

	svcName, err := envutil.String(ctx, "OTEL_SERVICE_NAME", envutil.Default(serviceName)).Value()
	if err != nil {
		return nil, err
	}

	svcVersion, err := envutil.String(ctx, "OTEL_SERVICE_VERSION",
		envutil.Default(defaultServiceVersion)).
		Value()
	if err != nil {
		return nil, err
	}

	endpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		envutil.Default(defaultEndpoint)).
		Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT",
		envutil.Default(defaultTimeout)).
		Value()
	if err != nil {
		return nil, err
	}

	ratio, err := envutil.Float64(ctx, "OTEL_TRACES_SAMPLER_ARG",
		envutil.Default(defaultSampleRatio), envutil.Between(0.0, 1.0)).
		Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServiceName:    svcName,
		ServiceVersion: svcVersion,
		Environment:    runningEnv,
		Endpoint:       endpoint,
		Enabled:        enabled,
		Timeout:        timeout,
		SampleRatio:    ratio,
	}, nil
}

// Initialize installs a global tracer provider exporting to config.Endpoint.
// It is a no-op when tracing is disabled or no endpoint is configured.
func Initialize(ctx context.Context, config *Config) error {
	log := logger.Get(ctx)

	if !config.Enabled {
		log.Debug("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		log.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	if err := install(ctx, config, exporter); err != nil {
		return err
	}

	log.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"sample_ratio", config.SampleRatio,
	)

	return nil
}

// install sets the global tracer provider, batching spans into exporter.
func install(ctx context.Context, config *Config, exporter sdktrace.SpanExporter) error {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
	}, config.Attributes...)

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))),
	)

	mut.Lock()
	tracerProvider = provider
	mut.Unlock()

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

// Shutdown flushes pending spans and stops the tracer provider installed by
// Initialize, if any. Later calls do nothing. Call it after the control loop
// has returned so its final spans are ended and exported.
func Shutdown(ctx context.Context) error {
	mut.Lock()
	provider := tracerProvider
	tracerProvider = nil
	mut.Unlock()

	if provider == nil {
		return nil
	}

	logger.Get(ctx).Debug("Shutting down OpenTelemetry tracer provider")

	return provider.Shutdown(ctx)
}
