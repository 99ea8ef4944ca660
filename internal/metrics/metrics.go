// Package metrics provides Prometheus metrics for the task session.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easywinget_tasks_started_total",
			Help: "Total number of package tasks launched after confirmation",
		},
		[]string{"action"},
	)
	TasksDeclined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easywinget_tasks_declined_total",
			Help: "Total number of package tasks declined at confirmation",
		},
		[]string{"action"},
	)
	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easywinget_tasks_completed_total",
			Help: "Total number of package tasks completed successfully",
		},
		[]string{"action"},
	)
	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easywinget_tasks_failed_total",
			Help: "Total number of package tasks that failed",
		},
		[]string{"action", "reason"},
	)
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "easywinget_task_duration_seconds",
			Help:    "Package task duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"action", "outcome"},
	)
	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "easywinget_tasks_running",
			Help: "Number of package tasks waiting on the backend",
		},
	)
	TasksMinimized = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "easywinget_tasks_minimized",
			Help: "Number of tasks in the minimized tray",
		},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "easywinget_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "easywinget_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordTaskStarted(action string) {
	TasksStarted.WithLabelValues(action).Inc()
	TasksRunning.Inc()
}

func RecordTaskDeclined(action string) {
	TasksDeclined.WithLabelValues(action).Inc()
}

func RecordTaskCompleted(action string, duration time.Duration) {
	TasksRunning.Dec()
	TasksCompleted.WithLabelValues(action).Inc()
	TaskDuration.WithLabelValues(action, "completed").Observe(duration.Seconds())
}

func RecordTaskFailed(action, reason string, duration time.Duration) {
	TasksRunning.Dec()
	TasksFailed.WithLabelValues(action, reason).Inc()
	TaskDuration.WithLabelValues(action, "failed").Observe(duration.Seconds())
}

func SetTasksMinimized(count int) {
	TasksMinimized.Set(float64(count))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
