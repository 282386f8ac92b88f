package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		apiRequestsTotal,
		apiRequestDuration,
	)
}

var (
	// Count of API calls grouped by route pattern and status class.
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Count of HTTP API calls by route and status class.",
		},
		[]string{"route", "code"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of HTTP API handlers in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
		[]string{"route"},
	)
)

func ObserveAPIRequest(route, code string, seconds float64) {
	apiRequestsTotal.WithLabelValues(route, code).Inc()
	apiRequestDuration.WithLabelValues(route).Observe(seconds)
}
