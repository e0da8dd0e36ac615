package telemetry

import (
	"context"
	"testing"

	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var _ port.Instrumentation = (*Instruments)(nil)

func TestNoopTracer(t *testing.T) {
	_, span := NoopTracer().Start(context.Background(), "profile")
	assert.NotNil(t, span)
	span.End()
}

func TestNoopInstruments(t *testing.T) {
	inst := NoopInstruments()
	ctx := context.Background()

	// None of these may panic.
	inst.IncrementQueryCount(ctx)
	inst.IncrementQueryErrors(ctx)
	inst.RecordQueryDuration(ctx, 3.5)
	inst.AddExpectationsGenerated(ctx, "item", 6)
	inst.RecordValidationOutcome(ctx, "item_auto", "PASS")
	inst.RecordToolDuration(ctx, 1)
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStartCommand(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer(instrumentationName)

	ctx, root := StartCommand(context.Background(), tracer, "profile")
	_, child := tracer.Start(ctx, "profiler.ProfileTable")
	child.End()
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "profiler.ProfileTable", spans[0].Name())
	assert.Equal(t, "plumbline profile", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[1].Attributes(), attribute.String("plumbline.command", "profile"))
}

func TestDBSystem(t *testing.T) {
	assert.Equal(t, "postgresql", dbSystem("postgres"))
	assert.Equal(t, "mssql", dbSystem("sqlserver"))
	assert.Equal(t, "oracle", dbSystem("oracle"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestInstruments_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	inst := newInstrumentsFromMeter(mp.Meter(instrumentationName))
	ctx := context.Background()

	inst.IncrementQueryCount(ctx)
	inst.IncrementQueryCount(ctx)
	inst.AddExpectationsGenerated(ctx, "item", 6)
	inst.RecordValidationOutcome(ctx, "item_auto", "FAIL")

	metrics := collect(t, reader)

	queries, ok := metrics["plumbline.query.count"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, queries.DataPoints, 1)
	assert.Equal(t, int64(2), queries.DataPoints[0].Value)

	generated, ok := metrics["plumbline.expectations.generated"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, generated.DataPoints, 1)
	assert.Equal(t, int64(6), generated.DataPoints[0].Value)
	table, _ := generated.DataPoints[0].Attributes.Value("db.collection.name")
	assert.Equal(t, "item", table.AsString())

	runs, ok := metrics["plumbline.validation.runs"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 1)
	outcome, _ := runs.DataPoints[0].Attributes.Value("plumbline.outcome")
	assert.Equal(t, "FAIL", outcome.AsString())
}
