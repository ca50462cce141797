// Package metrics holds the Prometheus collectors shared by the proxy packages.
// All collectors are registered on the default registry via promauto and are
// served by the admin router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache lookups by result ("hit", "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheInserts counts successful inserts.
	CacheInserts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_inserts_total",
			Help: "Total number of responses stored in the cache",
		},
	)

	// CacheEvictions counts inserts that replaced an occupied slot.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_evictions_total",
			Help: "Total number of occupied slots overwritten by an insert",
		},
	)

	// CacheUncacheable counts responses relayed but not stored.
	CacheUncacheable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_uncacheable_total",
			Help: "Total number of responses relayed without being cached",
		},
	)

	// CacheEntries is the number of occupied slots.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_cache_entries",
			Help: "Number of occupied cache slots",
		},
	)

	// CacheBytes is the number of value bytes held by the cache.
	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_cache_size_bytes",
			Help: "Current size of cached responses in bytes",
		},
	)

	// BytesRelayed counts response bytes written to clients by source ("origin", "cache").
	BytesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_bytes_relayed_total",
			Help: "Total response bytes written to clients by source",
		},
		[]string{"source"},
	)

	// ActiveConnections is the number of client connections being handled.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_active_connections",
			Help: "Number of client connections currently being handled",
		},
	)

	// RequestErrors counts failed or refused requests by class ("malformed",
	// "unsupported_method", "upstream", "client_io", "blacklisted", "blocked_host").
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_request_errors_total",
			Help: "Total number of failed client requests by error class",
		},
		[]string{"class"},
	)

	// OriginDuration observes time spent relaying a response from the origin.
	OriginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proxy_origin_duration_seconds",
			Help:    "Time spent fetching and relaying a response from the origin",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)
