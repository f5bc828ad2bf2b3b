// Package metrics exposes the Prometheus collectors shared by the pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veritas"

// Stage labels used with StageFailures and StageDuration
const (
	StageScrape  = "scrape"
	StageClaims  = "claims"
	StageRewrite = "rewrite"
	StageSearch  = "search"
	StageModel   = "model"
	StageStore   = "store"
	StageArchive = "archive"
)

var (
	// AnalysesTotal counts persisted analyses by input type and category
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Completed analyses by content type and category.",
	}, []string{"type", "category"})

	// StageFailures counts stages that fell back to their default
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_failures_total",
		Help:      "Pipeline stages that failed and were replaced by their default.",
	}, []string{"stage"})

	// StageDuration observes wall time per stage
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	// ModelAttempts counts each fallback-chain attempt by outcome (ok, error, empty)
	ModelAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_attempts_total",
		Help:      "Generative model attempts by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	// CacheLookups counts cache hits and misses per namespace
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by namespace and result.",
	}, []string{"namespace", "result"})

	// VotesTotal counts applied community votes
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Community votes applied by direction.",
	}, []string{"direction"})
)

// CacheResult returns the label value for a cache lookup
func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
