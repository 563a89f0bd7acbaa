package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the redirect and analytics pipeline, registered on the
// default registry served by NewServer.
var (
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "redirects_total",
		Help:      "Redirect requests by outcome (redirect, not_found, invalid, error).",
	}, []string{"outcome"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "cache_lookups_total",
		Help:      "Route cache lookups by result (hit, miss).",
	}, []string{"result"})

	StoreLookupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "store_lookups_total",
		Help:      "Link store queries issued on cache misses.",
	})

	AnalyticsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keyward",
		Name:      "analytics_queue_depth",
		Help:      "Click events currently waiting to be flushed.",
	})

	AnalyticsFlushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "analytics_flushes_total",
		Help:      "Flush attempts by result (success, failure).",
	}, []string{"result"})

	AnalyticsEventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "analytics_events_persisted_total",
		Help:      "Click events successfully written to the store.",
	})

	AnalyticsEventsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "analytics_events_requeued_total",
		Help:      "Click events returned to the queue after a failed flush.",
	})

	GeoLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyward",
		Name:      "geo_lookups_total",
		Help:      "Geo enrichment lookups by result (resolved, empty).",
	}, []string{"result"})
)
