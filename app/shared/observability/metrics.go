package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the operation-level metrics contract shared by every service.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordSweepResult(ctx context.Context, sweep string, rowsAffected int64)
	RecordStaffCodeAttempt(ctx context.Context, outcome string)
}

// PrometheusMetrics implements Metrics on top of a prometheus registry.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	sweepRows *prometheus.CounterVec
	codeTries *prometheus.CounterVec
}

// NewPrometheusMetrics registers the engine metric families on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ace_operation_attempts_total",
			Help: "Service operation attempts.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ace_operation_successes_total",
			Help: "Service operations that completed successfully.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ace_operation_failures_total",
			Help: "Service operations that failed with an infrastructure error.",
		}, []string{"operation", "service"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ace_operation_duration_seconds",
			Help:    "Service operation duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		sweepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ace_sweep_rows_total",
			Help: "Rows transitioned by expiry sweeps.",
		}, []string{"sweep"}),
		codeTries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ace_staff_code_attempts_total",
			Help: "Staff code redemption attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.durations, m.sweepRows, m.codeTries)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordSweepResult(_ context.Context, sweep string, rowsAffected int64) {
	m.sweepRows.WithLabelValues(sweep).Add(float64(rowsAffected))
}

func (m *PrometheusMetrics) RecordStaffCodeAttempt(_ context.Context, outcome string) {
	m.codeTries.WithLabelValues(outcome).Inc()
}

// NoopMetrics satisfies Metrics without recording anything. Used in tests.
type NoopMetrics struct{}

func (NoopMetrics) RecordOperationAttempt(context.Context, string, string) {}

func (NoopMetrics) RecordOperationSuccess(context.Context, string, string) {}

func (NoopMetrics) RecordOperationFailure(context.Context, string, string) {}

func (NoopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}

func (NoopMetrics) RecordSweepResult(context.Context, string, int64) {}

func (NoopMetrics) RecordStaffCodeAttempt(context.Context, string) {}
