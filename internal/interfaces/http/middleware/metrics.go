package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPDurationBuckets are latency boundaries in seconds
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// HTTPMetrics records request counts, latency and in-flight requests as
// OpenTelemetry instruments and Prometheus collectors
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter

	promRequests *prometheus.CounterVec
	promDuration *prometheus.HistogramVec
	promActive   prometheus.Gauge
}

// NewHTTPMetrics creates the instruments on meter and registers the
// collectors on reg. A nil reg skips Prometheus.
func NewHTTPMetrics(meter metric.Meter, reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	var err error
	if m.requests, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("HTTP requests by route and status"), metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HTTPDurationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests in flight"), metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	m.promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unify", Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	m.promDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "unify", Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency.", Buckets: HTTPDurationBuckets,
	}, []string{"method", "route"})
	m.promActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "unify", Subsystem: "http", Name: "active_requests",
		Help: "Requests in flight.",
	})
	if reg != nil {
		for _, c := range []prometheus.Collector{m.promRequests, m.promDuration, m.promActive} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register collector: %w", err)
			}
		}
	}
	return m, nil
}

// Middleware records every request. Unmatched routes are labelled "unmatched"
// to keep label cardinality bounded.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)
		m.promActive.Inc()
		defer func() {
			m.active.Add(ctx, -1)
			m.promActive.Dec()
		}()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("http.route", route),
			attribute.String("http.response.status_code", status),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, elapsed, attrs)
		m.promRequests.WithLabelValues(method, route, status).Inc()
		m.promDuration.WithLabelValues(method, route).Observe(elapsed)
	}
}
