// Package metrics exposes the engine's Prometheus instrumentation,
// grounded in the pack's inful-docbuilder pipeline metrics: stage cache
// hit/miss counters, build duration, and DAG size, registered against a
// dedicated registry so the orchestrator's /metrics endpoint (serve mode)
// never pulls in the process/Go-runtime default collectors of an
// application that embeds this engine as a library.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the engine's collectors. stage.Manager updates
// StageCacheHits and StageCacheMisses; BuildDuration, DAGNodeCount and
// CacheCorruptions are registered but nothing in the engine updates them.
type Metrics struct {
	Registry *prometheus.Registry

	StageCacheHits   *prometheus.CounterVec
	StageCacheMisses *prometheus.CounterVec
	BuildDuration    *prometheus.HistogramVec
	DAGNodeCount     *prometheus.GaugeVec
	CacheCorruptions *prometheus.CounterVec
}

// New builds a Metrics bundle registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		StageCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forgebuild",
			Name:      "stage_cache_hits_total",
			Help:      "Stage cache hits, by project and task.",
		}, []string{"project", "task"}),
		StageCacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forgebuild",
			Name:      "stage_cache_misses_total",
			Help:      "Stage cache misses, by project and task.",
		}, []string{"project", "task"}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forgebuild",
			Name:      "build_duration_seconds",
			Help:      "Wall-clock duration of a full build, by project.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"project"}),
		DAGNodeCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forgebuild",
			Name:      "reqdag_node_count",
			Help:      "Number of nodes in the resource-request DAG, by project.",
		}, []string{"project"}),
		CacheCorruptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forgebuild",
			Name:      "cache_corruptions_total",
			Help:      "Stage cache entries discarded due to detected corruption.",
		}, []string{"project"}),
	}

	reg.MustRegister(m.StageCacheHits, m.StageCacheMisses, m.BuildDuration, m.DAGNodeCount, m.CacheCorruptions)
	return m
}
