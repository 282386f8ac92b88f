package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayRequestDuration) }

// op: token|push|query
// result: ok|error|timeout
var gatewayRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "payment_gateway_request_duration_seconds",
		Help:    "Latency of outbound payment gateway calls in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	},
	[]string{"gateway", "op", "result"},
)

func ObserveGatewayCall(gateway, op, result string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(norm(gateway), norm(op), norm(result)).Observe(d.Seconds())
}
