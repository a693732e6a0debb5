// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "metahkg_redirect"

var (
	// Evaluations counts finished URL evaluations by HTTP-equivalent outcome.
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "URL evaluations by outcome status code.",
	}, []string{"outcome"})

	// CacheHits counts verdict cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdict_cache_hits_total",
		Help:      "Verdict cache hits.",
	})

	// CacheMisses counts verdict cache misses, including corrupt entries.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdict_cache_misses_total",
		Help:      "Verdict cache misses.",
	})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429.",
	})

	// FeedEntries tracks the size of the live threat feed snapshot.
	FeedEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_entries",
		Help:      "Entries in the live threat feed snapshot.",
	}, []string{"feed"})

	// FeedRefreshTime records the unix time of the last successful refresh.
	FeedRefreshTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_refresh_timestamp_seconds",
		Help:      "Unix time of the last successful feed refresh.",
	})

	// ProbeDuration observes outbound probe latency.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Reachability probe latency.",
		Buckets:   prometheus.DefBuckets,
	})
)
