package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	marksRecordedTotal    *prometheus.CounterVec
	markConflictsTotal    prometheus.Counter
	scopeResolutionsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exam_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		marksRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_marks_recorded_total",
			Help: "Total number of mark records written, by presence.",
		}, []string{"presence"})

		markConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_mark_write_conflicts_total",
			Help: "Total number of mark writes rejected by optimistic versioning.",
		})

		scopeResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_scope_resolutions_total",
			Help: "Total number of uncached scope resolutions, by scope kind.",
		}, []string{"kind"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			marksRecordedTotal,
			markConflictsTotal,
			scopeResolutionsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// MarksRecorded exposes the counter for mark record writes.
func MarksRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return marksRecordedTotal
}

// MarkWriteConflicts exposes the counter for versioning conflicts.
func MarkWriteConflicts() prometheus.Counter {
	RegisterMetrics()
	return markConflictsTotal
}

// ScopeResolutions exposes the counter for scope resolutions.
func ScopeResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return scopeResolutionsTotal
}
