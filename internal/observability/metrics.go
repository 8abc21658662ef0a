package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	uiRequestsTotal       *prometheus.CounterVec
	uiLatencySeconds      *prometheus.HistogramVec
	uiErrorsTotal         *prometheus.CounterVec
	backendRequestsTotal  *prometheus.CounterVec
	backendLatencySeconds *prometheus.HistogramVec
	submissionToggles     *prometheus.CounterVec
	viewEventsPublished   *prometheus.CounterVec
	eventSubscribers      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the console.
func RegisterMetrics() {
	registerOnce.Do(func() {
		uiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_ui_requests_total",
			Help: "Total number of console requests served.",
		}, []string{"method", "route", "status"})

		uiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_ui_latency_seconds",
			Help:    "Latency distribution for console requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		uiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_ui_errors_total",
			Help: "Total number of error responses returned by the console.",
		}, []string{"method", "route", "status"})

		backendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_backend_requests_total",
			Help: "Calls issued to the roster backend by operation and status.",
		}, []string{"operation", "status"})

		backendLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_backend_latency_seconds",
			Help:    "Latency of calls issued to the roster backend.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"operation"})

		submissionToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_submission_toggles_total",
			Help: "Matrix cell toggles by action and outcome.",
		}, []string{"action", "outcome"})

		viewEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_view_events_total",
			Help: "View invalidation events delivered to local subscribers.",
		}, []string{"reason", "origin"})

		eventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_event_subscribers_active",
			Help: "Browser connections currently subscribed to view events.",
		})

		prometheus.MustRegister(
			uiRequestsTotal,
			uiLatencySeconds,
			uiErrorsTotal,
			backendRequestsTotal,
			backendLatencySeconds,
			submissionToggles,
			viewEventsPublished,
			eventSubscribers,
		)
	})
}

// UIRequests exposes the counter for console requests.
func UIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uiRequestsTotal
}

// UILatency exposes the latency histogram for console requests.
func UILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return uiLatencySeconds
}

// UIErrors exposes the counter for console error responses.
func UIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return uiErrorsTotal
}

// BackendRequests exposes the backend call counter.
func BackendRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return backendRequestsTotal
}

// BackendLatency exposes the backend latency histogram.
func BackendLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return backendLatencySeconds
}

// SubmissionToggles exposes the matrix toggle counter.
func SubmissionToggles() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionToggles
}

// ViewEventsPublished exposes the view event counter.
func ViewEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return viewEventsPublished
}

// EventSubscribersActive exposes the gauge of connected event subscribers.
func EventSubscribersActive() prometheus.Gauge {
	RegisterMetrics()
	return eventSubscribers
}
