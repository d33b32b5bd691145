package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricsNamespace = "unify"

// PipelineMetrics records row flow and stage timings twice: as OpenTelemetry
// instruments for OTLP export and as Prometheus collectors for scraping.
type PipelineMetrics struct {
	rows     metric.Int64Counter
	dropped  metric.Int64Counter
	duration metric.Float64Histogram
	runs     metric.Int64Counter

	promRows     *prometheus.CounterVec
	promDropped  *prometheus.CounterVec
	promDuration *prometheus.HistogramVec
	promRuns     *prometheus.CounterVec
}

// NewPipelineMetrics creates the instruments on meter and registers the
// collectors on reg. A nil reg skips Prometheus.
func NewPipelineMetrics(meter metric.Meter, reg prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error
	if m.rows, err = meter.Int64Counter("unify.pipeline.rows",
		metric.WithDescription("Rows entering or leaving a stage"), metric.WithUnit("{row}")); err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}
	if m.dropped, err = meter.Int64Counter("unify.pipeline.rows_dropped",
		metric.WithDescription("Rows dropped by cause"), metric.WithUnit("{row}")); err != nil {
		return nil, fmt.Errorf("failed to create dropped counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("unify.pipeline.stage_duration",
		metric.WithDescription("Stage wall time"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if m.runs, err = meter.Int64Counter("unify.pipeline.runs",
		metric.WithDescription("Pipeline runs by outcome"), metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	m.promRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "pipeline", Name: "rows_total",
		Help: "Rows entering or leaving a stage.",
	}, []string{"entity", "direction"})
	m.promDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "pipeline", Name: "rows_dropped_total",
		Help: "Rows dropped by cause.",
	}, []string{"entity", "cause"})
	m.promDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "pipeline", Name: "stage_duration_seconds",
		Help: "Stage wall time.", Buckets: DurationBuckets,
	}, []string{"stage", "outcome"})
	m.promRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "pipeline", Name: "runs_total",
		Help: "Pipeline runs by kind and outcome.",
	}, []string{"kind", "outcome"})

	if reg != nil {
		for _, c := range []prometheus.Collector{m.promRows, m.promDropped, m.promDuration, m.promRuns} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register collector: %w", err)
			}
		}
	}
	return m, nil
}

// RowsIn counts rows read by an entity stage
func (m *PipelineMetrics) RowsIn(ctx context.Context, entity string, n int) {
	m.addRows(ctx, entity, "in", n)
}

// RowsOut counts rows produced by an entity stage
func (m *PipelineMetrics) RowsOut(ctx context.Context, entity string, n int) {
	m.addRows(ctx, entity, "out", n)
}

func (m *PipelineMetrics) addRows(ctx context.Context, entity, direction string, n int) {
	if n <= 0 {
		return
	}
	m.rows.Add(ctx, int64(n), metric.WithAttributes(AttrEntity.String(entity), attribute.String("direction", direction)))
	m.promRows.WithLabelValues(entity, direction).Add(float64(n))
}

// Dropped counts rows removed for cause
func (m *PipelineMetrics) Dropped(ctx context.Context, entity, cause string, n int) {
	if n <= 0 {
		return
	}
	m.dropped.Add(ctx, int64(n), metric.WithAttributes(AttrEntity.String(entity), AttrCause.String(cause)))
	m.promDropped.WithLabelValues(entity, cause).Add(float64(n))
}

// StageDone records a stage's duration and outcome
func (m *PipelineMetrics) StageDone(ctx context.Context, stage string, d time.Duration, err error) {
	o := outcome(err)
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrStage.String(stage), attribute.String("outcome", o)))
	m.promDuration.WithLabelValues(stage, o).Observe(d.Seconds())
}

// RunDone counts a finished run
func (m *PipelineMetrics) RunDone(ctx context.Context, kind string, err error) {
	o := outcome(err)
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), attribute.String("outcome", o)))
	m.promRuns.WithLabelValues(kind, o).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
