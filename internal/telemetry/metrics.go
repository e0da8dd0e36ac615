package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/guillermoBallester/plumbline"

// Instruments implements port.Instrumentation on top of OTel instruments.
type Instruments struct {
	QueryCount            metric.Int64Counter
	QueryDuration         metric.Float64Histogram
	QueryErrors           metric.Int64Counter
	ExpectationsGenerated metric.Int64Counter
	ValidationRuns        metric.Int64Counter
	ToolDuration          metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(instrumentationName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(instrumentationName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// The SDK hands back a usable noop instrument alongside any error.
	queryCount, _ := meter.Int64Counter("plumbline.query.count",
		metric.WithDescription("Statements sent to datasources"),
	)
	queryDuration, _ := meter.Float64Histogram("plumbline.query.duration",
		metric.WithDescription("Statement duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("plumbline.query.errors",
		metric.WithDescription("Statements that returned an error"),
	)
	generated, _ := meter.Int64Counter("plumbline.expectations.generated",
		metric.WithDescription("Expectations added by the profiler"),
	)
	runs, _ := meter.Int64Counter("plumbline.validation.runs",
		metric.WithDescription("Validation runs by outcome"),
	)
	toolDuration, _ := meter.Float64Histogram("plumbline.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:            queryCount,
		QueryDuration:         queryDuration,
		QueryErrors:           queryErrors,
		ExpectationsGenerated: generated,
		ValidationRuns:        runs,
		ToolDuration:          toolDuration,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1)
}

func (i *Instruments) AddExpectationsGenerated(ctx context.Context, table string, n int) {
	i.ExpectationsGenerated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("db.collection.name", table)))
}

func (i *Instruments) RecordValidationOutcome(ctx context.Context, suite, outcome string) {
	i.ValidationRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plumbline.suite", suite),
		attribute.String("plumbline.outcome", outcome),
	))
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
