package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odp_searches_total",
		Help: "Searches grouped by outcome.",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "odp_search_duration_seconds",
		Help:    "End to end search latency including route resolution.",
		Buckets: prometheus.DefBuckets,
	})

	searchCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "odp_search_candidates",
		Help:    "Candidates returned by the proximity stage.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
	})
)
