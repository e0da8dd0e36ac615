package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options describes the process being instrumented.
type Options struct {
	ServiceName    string
	Version        string
	DatasourceName string
	DatasourceType string
}

// Provider owns the registered trace and metric providers.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init registers global trace and metric providers exporting over OTLP gRPC.
// The SDK reads OTEL_EXPORTER_OTLP_ENDPOINT itself. Metrics are pushed
// periodically and flushed by Shutdown, so short CLI runs must always call it.
func Init(ctx context.Context, opts Options) (*Provider, error) {
	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	p := &Provider{
		tp: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		),
		mp: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		),
	}

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	// Lets a pipeline step that launches plumbline pass its trace context on.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return p, nil
}

func newResource(ctx context.Context, opts Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.Version),
	}
	if opts.DatasourceName != "" {
		attrs = append(attrs, attribute.String("plumbline.datasource", opts.DatasourceName))
	}
	if opts.DatasourceType != "" {
		attrs = append(attrs, semconv.DBSystemKey.String(dbSystem(opts.DatasourceType)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}
	return res, nil
}

// dbSystem maps a datasource type to its semconv db.system value.
func dbSystem(datasourceType string) string {
	switch datasourceType {
	case "postgres":
		return "postgresql"
	case "sqlserver":
		return "mssql"
	default:
		return datasourceType
	}
}

// Shutdown flushes pending spans and metrics. It is safe on a nil Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down meter: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Tracer returns the global tracer for plumbline spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// NoopTracer is used when telemetry is disabled.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("noop")
}

// StartCommand opens the root span of one CLI invocation. Service spans
// started from the returned context nest under it.
func StartCommand(ctx context.Context, tracer trace.Tracer, command string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "plumbline "+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("plumbline.command", command)),
	)
}
