// Package metrics is the ambient observability surface described in
// SPEC_FULL.md's binding-layer section: admission outcome counters and
// queue-depth gauges, served on a side listener. It is not a functional
// requirement of the registry and nothing in internal/registry imports it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DiscoverOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "discover",
		Name:      "outcomes_total",
		Help:      "Count of discover requests by outcome reason.",
	}, []string{"reason"})

	RegisterClusterOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "clusters",
		Name:      "outcomes_total",
		Help:      "Count of cluster registration requests by outcome reason.",
	}, []string{"reason"})

	EvictionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lighthouse",
		Subsystem: "eviction",
		Name:      "queue_depth",
		Help:      "Number of group eviction hints currently pending.",
	})

	ReplayCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lighthouse",
		Subsystem: "replay",
		Name:      "cache_size",
		Help:      "Number of fingerprints currently tracked by the anti-replay cache.",
	})
)

// Handler returns the HTTP handler to serve on the metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
