package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sessionsGrantedTotal,
		sessionsExpiredTotal,
		operatorAlertsTotal,
	)
}

var (
	sessionsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_granted_total",
			Help: "Access sessions granted, by source (payment, voucher).",
		},
		[]string{"source"},
	)

	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total number of sessions processed by the expiry worker.",
		},
	)

	operatorAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_alerts_total",
			Help: "Operator alerts by delivery status.",
		},
		[]string{"status"}, // 'sent', 'error', 'disabled'
	)
)

func IncSessionGranted(source string) {
	sessionsGrantedTotal.WithLabelValues(norm(source)).Inc()
}

func IncSessionsExpired(count int) {
	sessionsExpiredTotal.Add(float64(count))
}

func IncOperatorAlert(status string) {
	operatorAlertsTotal.WithLabelValues(norm(status)).Inc()
}
