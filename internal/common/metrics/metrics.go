package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_searches_total",
			Help: "Total provider search calls by outcome (ok, empty, failed, skipped)",
		},
		[]string{"provider", "outcome"},
	)

	ProviderSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "provider_search_duration_seconds",
			Help: "Duration of provider search calls in seconds",
		},
		[]string{"provider"},
	)

	FallbackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovery_fallback_depth",
			Help:    "How many providers were tried before a discovery call produced results",
			Buckets: prometheus.LinearBuckets(1, 1, 4),
		},
	)

	ResolveRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_requests_total",
			Help: "Total identity resolution requests by outcome (hit, resolved, failed)",
		},
		[]string{"outcome"},
	)

	ResolutionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolution_cache_hits_total",
			Help: "Resolutions served from the session cache without a backend call",
		},
	)
)
