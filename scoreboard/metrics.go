package scoreboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_cache_lookups_total",
			Help: "Scoreboard cache lookups by mode and result (hit, miss, error).",
		},
		[]string{"mode", "result"},
	)
	cacheStoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_cache_store_failures_total",
			Help: "Scoreboard cache writes that failed.",
		},
		[]string{"mode"},
	)
	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoreboard_build_duration_seconds",
			Help:    "Time spent computing a scoreboard on cache miss.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view", "status"},
	)
)
