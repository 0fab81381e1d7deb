// Package observability provides OpenTelemetry-based metrics and tracing
// for the domain core. Everything degrades to no-ops when no exporter or
// reader is configured.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures the observability stack.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// TraceExporter is optional; nil disables tracing.
	TraceExporter sdktrace.SpanExporter

	// MetricReader is optional; nil disables metrics.
	MetricReader sdkmetric.Reader

	Logger *slog.Logger
}

// Telemetry bundles the tracer, meter and instruments used across the core.
type Telemetry struct {
	Tracer  trace.Tracer
	Metrics *Metrics
	Logger  *slog.Logger

	shutdown []func(context.Context) error
}

// Init initializes OpenTelemetry with graceful degradation. Components
// accept a nil *Telemetry and skip instrumentation entirely.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tel := &Telemetry{
		Tracer: noop.NewTracerProvider().Tracer("kodex"),
		Logger: cfg.Logger,
	}

	if cfg.TraceExporter != nil {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(cfg.TraceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		tel.Tracer = tp.Tracer("kodex")
		tel.shutdown = append(tel.shutdown, tp.Shutdown)
		cfg.Logger.Info("tracing initialized", "service", cfg.ServiceName)
	}

	if cfg.MetricReader != nil {
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(cfg.MetricReader),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		tel.shutdown = append(tel.shutdown, mp.Shutdown)

		metrics, err := NewMetrics(mp.Meter("kodex"))
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		tel.Metrics = metrics
		cfg.Logger.Info("metrics initialized", "service", cfg.ServiceName)
	}

	return tel, nil
}

// Shutdown flushes and stops all configured providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown: %v", errs)
	}
	return nil
}
