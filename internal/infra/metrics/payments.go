package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		callbacksTotal,
		rateLimitTriggeredTotal,
	)
}

var (
	// status: initiated|completed|failed
	// source: initiate|callback|verify|reconciler
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment state transitions by status and the path that applied them.",
		},
		[]string{"status", "source"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// outcome: applied|duplicate|held|malformed|unknown|duplicate_receipt|provision_error|missing_package|error
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Provider callbacks received, by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_initiate_rate_limited_total",
			Help: "Total number of payment prompts refused by the per-phone limiter.",
		},
	)
)

func IncPayment(status, source string) {
	paymentsTotal.WithLabelValues(norm(status), norm(source)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func IncCallback(outcome string) {
	callbacksTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRateLimitTriggered() {
	rateLimitTriggeredTotal.Inc()
}
