package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entity_cache_lookups_total",
		Help: "Entity cache lookups by kind and result (hit or miss)",
	}, []string{"kind", "result"})

	remoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entity_cache_remote_fetches_total",
		Help: "Remote fetches issued by entity caches after coalescing",
	}, []string{"kind", "op"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "entity_cache_fetch_duration_seconds",
		Help:    "Duration of coalesced remote fetches by kind and operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "op"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "entity_cache_entries",
		Help: "Current number of cached entities by kind",
	}, []string{"kind"})
)
