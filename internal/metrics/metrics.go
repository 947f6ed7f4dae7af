// Package metrics exposes Prometheus metrics for the scheduling engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_jobs_scheduled_total",
			Help: "Total number of jobs handed to the queue",
		},
		[]string{"type"},
	)

	scheduleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_schedule_failures_total",
			Help: "Total number of scheduling failures swallowed by the isolation wrapper",
		},
		[]string{"operation"},
	)

	cronJobsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseflow_cron_jobs_registered_total",
			Help: "Total number of cron catalog entries registered at bootstrap",
		},
	)

	jobsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseflow_jobs_executed_total",
			Help: "Total number of jobs executed by the worker",
		},
		[]string{"type", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseflow_job_duration_seconds",
			Help:    "Job execution time in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "caseflow_queue_depth",
			Help: "Number of jobs waiting in the queue",
		},
	)

	expiredJobsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseflow_expired_jobs_deleted_total",
			Help: "Total number of jobs removed by the expired-job sweep",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordJobScheduled(jobType string) {
	jobsScheduled.WithLabelValues(jobType).Inc()
}

func RecordScheduleFailure(operation string) {
	scheduleFailures.WithLabelValues(operation).Inc()
}

func RecordCronJobRegistered() {
	cronJobsRegistered.Inc()
}

func RecordJobExecution(jobType, status string, duration time.Duration) {
	jobsExecuted.WithLabelValues(jobType, status).Inc()
	jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

func UpdateQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

func RecordExpiredJobsDeleted(count int) {
	expiredJobsDeleted.Add(float64(count))
}
