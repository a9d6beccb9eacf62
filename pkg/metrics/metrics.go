// Package metrics exposes the engine's Prometheus instrumentation: shard
// load counts by category and outcome, query latency, and candidate-set
// size. Unlike the teacher's pkg/prometheus, which bridges through the
// full OpenTelemetry metrics SDK, this is wired straight to
// client_golang against a private registry — there is no other OTel
// metrics exporter in this client to share a MeterProvider with.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the engine reports to.
type Metrics struct {
	Registry *prometheus.Registry

	ShardLoadsTotal  *prometheus.CounterVec
	QueryDuration    prometheus.Histogram
	CandidateSetSize prometheus.Histogram
}

// New registers a fresh set of metrics on a private registry so that
// multiple Handles in one process (or in tests) don't collide on the
// default global registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		ShardLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folder",
			Name:      "shard_loads_total",
			Help:      "Count of shard hydration attempts by category and outcome.",
		}, []string{"category", "outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "folder",
			Name:      "query_duration_seconds",
			Help:      "Latency of a full Search call, including any shard hydration it triggers.",
			Buckets:   prometheus.DefBuckets,
		}),
		CandidateSetSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "folder",
			Name:      "query_candidate_set_size",
			Help:      "Number of candidate documents produced by the match phase, before pagination.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}

	registry.MustRegister(m.ShardLoadsTotal, m.QueryDuration, m.CandidateSetSize)

	return m
}

// RecordShardLoad increments the load counter for category with outcome
// "hit" (already loaded, no fetch needed), "loaded" (fetched and
// ingested), or "failed".
func (m *Metrics) RecordShardLoad(category, outcome string) {
	if m == nil {
		return
	}

	m.ShardLoadsTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveQueryDuration records one Search call's wall-clock duration in
// seconds.
func (m *Metrics) ObserveQueryDuration(seconds float64) {
	if m == nil {
		return
	}

	m.QueryDuration.Observe(seconds)
}

// ObserveCandidateSetSize records the size of one Search call's candidate
// set before pagination.
func (m *Metrics) ObserveCandidateSetSize(n int) {
	if m == nil {
		return
	}

	m.CandidateSetSize.Observe(float64(n))
}
