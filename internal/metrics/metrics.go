// Package metrics exposes the daemon's Prometheus collectors, grounded on
// pkg/metrics/metrics.go's New*/MustRegister variable-declaration style
// and promhttp exposition, renamed from warren_ to dotlanth_ and scoped
// to this engine's own components instead of the teacher's cluster
// scheduler domain.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InstructionsExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dotlanth_instructions_executed_total",
			Help: "Total number of bytecode instructions executed, by architecture tier",
		},
		[]string{"tier"},
	)

	OpcodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dotlanth_opcode_duration_seconds",
			Help:    "Time taken to execute a single opcode, by opcode kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"opcode"},
	)

	MVCCCommitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dotlanth_mvcc_commit_total",
			Help: "Total number of MVCC transactions committed",
		},
	)

	MVCCVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dotlanth_mvcc_version",
			Help: "Current MVCC store version",
		},
	)

	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dotlanth_snapshot_duration_seconds",
			Help:    "Time taken to create or restore a snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	CancellationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dotlanth_cancellations_total",
			Help: "Total number of cancelled tasks, by reason",
		},
		[]string{"reason"},
	)

	CapabilityDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dotlanth_capability_denied_total",
			Help: "Total number of opcode executions denied by the capability gate",
		},
	)

	AuditBufferFullTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dotlanth_audit_buffer_full_total",
			Help: "Total number of audit events dropped because the buffered sink was full",
		},
	)

	ParaDotTasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dotlanth_paradot_tasks_active",
			Help: "Number of currently running ParaDot tasks",
		},
	)
)

func init() {
	prometheus.MustRegister(
		InstructionsExecutedTotal,
		OpcodeDuration,
		MVCCCommitTotal,
		MVCCVersion,
		SnapshotDuration,
		CancellationsTotal,
		CapabilityDeniedTotal,
		AuditBufferFullTotal,
		ParaDotTasksActive,
	)
}

// Handler returns the Prometheus HTTP exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations, matching pkg/metrics.Timer.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
