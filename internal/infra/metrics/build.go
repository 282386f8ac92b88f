package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(hotspotInfo) }

// hotspotInfo is always 1; the labels identify the running binary and the
// M-Pesa provider it charges through.
var hotspotInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hotspot_billing_info",
		Help: "Running hotspot billing build and the M-Pesa provider it is wired to.",
	},
	[]string{"version", "commit", "mpesa_provider"},
)

func SetBuildInfo(version, commit, provider string) {
	hotspotInfo.WithLabelValues(version, commit, norm(provider)).Set(1)
}
