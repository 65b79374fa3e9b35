// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation results.
const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	// mutationsTotal counts graph mutations by operation and result
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorekeep_mutations_total",
		Help: "Total graph mutations by operation and result",
	}, []string{"operation", "result"})

	// mutationDuration tracks mutation latency including persistence
	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lorekeep_mutation_duration_seconds",
		Help:    "Mutation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"operation"})

	// drilldownNodes tracks how many entities a materialized view holds
	drilldownNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lorekeep_drilldown_nodes",
		Help:    "Entities selected per drilldown",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
	})

	// integrityFlagged reports flagged links in the last integrity scan
	integrityFlagged = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lorekeep_integrity_flagged_links",
		Help: "Links flagged by the most recent integrity scan",
	})

	// registryEntities reports the size of the live registry
	registryEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lorekeep_registry_entities",
		Help: "Entities in the live registry",
	})
)

// ObserveMutation records one mutation outcome.
func ObserveMutation(operation, result string, elapsed time.Duration) {
	mutationsTotal.WithLabelValues(operation, result).Inc()
	mutationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveDrilldown records the size of a materialized view.
func ObserveDrilldown(nodes int) {
	drilldownNodes.Observe(float64(nodes))
}

// SetIntegrityFlagged records the flagged-link count of a scan.
func SetIntegrityFlagged(n int) {
	integrityFlagged.Set(float64(n))
}

// SetRegistrySize records the live registry size.
func SetRegistrySize(n int) {
	registryEntities.Set(float64(n))
}
