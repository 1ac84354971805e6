package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce               sync.Once
	httpRequestsTotal          *prometheus.CounterVec
	httpLatencySeconds         *prometheus.HistogramVec
	httpErrorsTotal            *prometheus.CounterVec
	submissionsTotal           *prometheus.CounterVec
	gradeChangesTotal          *prometheus.CounterVec
	gradebookSyncFailuresTotal *prometheus.CounterVec
	notificationsPublished     *prometheus.CounterVec
	eventsRecordedTotal        *prometheus.CounterVec
	sseClientsActive           prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidassign_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_submissions_total",
			Help: "Student submissions by outcome.",
		}, []string{"outcome"})

		gradeChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_grade_changes_total",
			Help: "Grading attempts by outcome.",
		}, []string{"outcome"})

		gradebookSyncFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_gradebook_sync_failures_total",
			Help: "Gradebook operations that failed.",
		}, []string{"operation"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_notifications_published_total",
			Help: "Notifications delivered to subscribers.",
		}, []string{"type"})

		eventsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidassign_events_recorded_total",
			Help: "Assignment events recorded.",
		}, []string{"action"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vidassign_stream_clients_active",
			Help: "Open notification streams.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsTotal,
			gradeChangesTotal,
			gradebookSyncFailuresTotal,
			notificationsPublished,
			eventsRecordedTotal,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// GradeChanges exposes the grading outcome counter.
func GradeChanges() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeChangesTotal
}

// GradebookSyncFailures exposes the gradebook failure counter.
func GradebookSyncFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return gradebookSyncFailuresTotal
}

// NotificationsPublishedTotal exposes the notification delivery counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// EventsRecorded exposes the assignment event counter.
func EventsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsRecordedTotal
}

// SSEClientsActive exposes the gauge of open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
