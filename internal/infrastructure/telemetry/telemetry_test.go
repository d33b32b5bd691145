package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Profiler.IsEnabled())
	assert.NotNil(t, p.Meter.Meter("x"))
	assert.NotNil(t, p.Tracer.Tracer("x"))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Profiler.Stop())
}

func TestProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	var lp *LoggerProvider
	core := lp.Core("unify", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelCore{Core: inner, min: zapcore.WarnLevel}
	l := zap.New(core).With(zap.String("k", "v"))

	l.Info("dropped")
	l.Warn("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "v", logs.All()[0].ContextMap()["k"])
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestStartStage_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	run := func() (err error) {
		_, span := StartStage(context.Background(), "customers", AttrEntity.String("customer"))
		defer EndSpan(span, &err)
		return errors.New("load failed")
	}
	require.Error(t, run())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.customers", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), AttrStage.String("customers"))
	assert.Contains(t, spans[0].Attributes(), AttrEntity.String("customer"))
}

func TestPipelineMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	reg := prometheus.NewRegistry()

	m, err := NewPipelineMetrics(mp.Meter("test"), reg)
	require.NoError(t, err)

	m.RowsIn(ctx, "customer", 10)
	m.RowsOut(ctx, "customer", 8)
	m.Dropped(ctx, "customer", "duplicate_id", 2)
	m.Dropped(ctx, "customer", "noop", 0)
	m.StageDone(ctx, "customers", 150*time.Millisecond, nil)
	m.RunDone(ctx, "full", errors.New("x"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	byName := map[string]metricdata.Metrics{}
	for _, mt := range rm.ScopeMetrics[0].Metrics {
		byName[mt.Name] = mt
	}
	dropped, ok := byName["unify.pipeline.rows_dropped"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, dropped.DataPoints, 1)
	assert.Equal(t, int64(2), dropped.DataPoints[0].Value)
	rows, ok := byName["unify.pipeline.rows"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, rows.DataPoints, 2)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readAll(t, resp)
	assert.Contains(t, body, `unify_pipeline_rows_dropped_total{cause="duplicate_id",entity="customer"} 2`)
	assert.Contains(t, body, `unify_pipeline_rows_total{direction="in",entity="customer"} 10`)
	assert.Contains(t, body, `unify_pipeline_runs_total{kind="full",outcome="error"} 1`)
	assert.Contains(t, body, `unify_pipeline_stage_duration_seconds_count{outcome="ok",stage="customers"} 1`)
}

func TestPipelineMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	meter := sdkmetric.NewMeterProvider().Meter("test")
	_, err := NewPipelineMetrics(meter, reg)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(meter, reg)
	assert.Error(t, err)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	buf := new(strings.Builder)
	_, err := io.Copy(buf, resp.Body)
	require.NoError(t, err)
	return buf.String()
}
