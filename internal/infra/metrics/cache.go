package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(catalogCacheLookups, catalogCacheEvictions) }

var (
	// view is "list" for the whole catalog or "item" for a package by id or code;
	// result is hit, miss or error (redis unreachable, served from postgres).
	catalogCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "package_catalog_cache_lookups_total",
			Help: "Package catalog reads served through the redis cache, by view and result.",
		},
		[]string{"view", "result"},
	)
	catalogCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "package_catalog_cache_evictions_total",
			Help: "Catalog cache entries dropped after a package was saved.",
		},
	)
)

func IncCatalogCacheLookup(view, result string) {
	catalogCacheLookups.WithLabelValues(norm(view), norm(result)).Inc()
}

func IncCatalogCacheEviction() { catalogCacheEvictions.Inc() }
