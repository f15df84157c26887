package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics records outcomes of backend REST calls.
type APIMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewAPIMetrics registers the request metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "Duration of backend API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_request_success",
		Help: "Backend API requests that returned a 2xx response.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_request_failure",
		Help: "Backend API requests that failed, by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, success, failure)
	return &APIMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the latency of one request.
func (m *APIMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess counts a successful request.
func (m *APIMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure counts a failed request under its error code.
func (m *APIMetrics) IncFailure(operation, code string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
