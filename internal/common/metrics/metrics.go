// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for IntakeRequests.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	IntakeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Total number of workflow instance intake calls by outcome",
		},
		[]string{"outcome"},
	)

	IntakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_failures_total",
			Help: "Total number of failed workflow instance intake calls by error code",
		},
		[]string{"error_code"},
	)

	IntakeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intake_duration_seconds",
			Help:    "Duration of workflow instance intake calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditSinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_sink_errors_total",
			Help: "Total number of audit events a sink failed to record",
		},
		[]string{"sink"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
