package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweeperJobMetrics records duration and outcome counters for the
// background reconciliation jobs.
type SweeperJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	swept    *prometheus.CounterVec
}

// NewSweeperJobMetrics registers the job metrics on the provided registerer.
func NewSweeperJobMetrics(reg prometheus.Registerer) *SweeperJobMetrics {
	if reg == nil {
		return &SweeperJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweeper_job_duration_seconds",
		Help:    "Duration of sweeper jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_job_success",
		Help: "Successful sweeper job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_job_failure",
		Help: "Failed sweeper job executions.",
	}, []string{"job"})
	swept := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweeper_items_processed",
		Help: "Items handled per sweeper job.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, swept)
	return &SweeperJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		swept:    swept,
	}
}

// ObserveDuration records the duration for the named job.
func (m *SweeperJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *SweeperJobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *SweeperJobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddProcessed adds to the processed-items counter for the named job.
func (m *SweeperJobMetrics) AddProcessed(job string, n int) {
	if m == nil || m.swept == nil || n <= 0 {
		return
	}
	m.swept.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
