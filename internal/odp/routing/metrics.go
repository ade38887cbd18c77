package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odp_route_resolutions_total",
		Help: "Route resolutions that reached a provider tier, grouped by the tier that answered.",
	}, []string{"source"})

	providerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odp_route_provider_failures_total",
		Help: "Routing provider attempts that fell through to the next tier.",
	}, []string{"provider", "reason"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odp_route_cache_lookups_total",
		Help: "Route cache lookups grouped by outcome.",
	}, []string{"result"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odp_route_provider_duration_seconds",
		Help:    "Latency of routing provider calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)
