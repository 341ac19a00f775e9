package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation counts and latencies.
type PrometheusMetricsRecorder struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "communityconnect",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Service operations by name and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "communityconnect",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.total, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(AuditStatusSuccess)
	if !success {
		status = string(AuditStatusError)
	}
	r.total.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// MultiMetricsRecorder fans observations out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, rec := range m {
		rec.Observe(ctx, operation, success, duration)
	}
}
