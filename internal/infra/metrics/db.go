package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ledgerConns, ledgerAcquireWaits) }

var (
	ledgerConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_db_connections",
			Help: "Connections of the payment and session ledger pool by state (acquired, idle, max).",
		},
		[]string{"state"},
	)
	ledgerAcquireWaits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_db_empty_acquires",
			Help: "Cumulative acquires that had to wait because the ledger pool was exhausted.",
		},
	)
)

// LedgerPoolStats is the subset of pool statistics exported for the ledger database.
type LedgerPoolStats struct {
	Acquired      int32
	Idle          int32
	Max           int32
	EmptyAcquires int64
}

func SetDBPoolStats(s LedgerPoolStats) {
	ledgerConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	ledgerConns.WithLabelValues("idle").Set(float64(s.Idle))
	ledgerConns.WithLabelValues("max").Set(float64(s.Max))
	ledgerAcquireWaits.Set(float64(s.EmptyAcquires))
}
