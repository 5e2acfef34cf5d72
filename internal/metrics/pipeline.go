package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment outcomes.
const (
	EnrichHit           = "hit"
	EnrichStalePrice    = "stale_price"
	EnrichStaleAnalysis = "stale_analysis"
	EnrichMiss          = "miss"
	EnrichFailed        = "failed"
)

// Ranking outcomes.
const (
	RankRanked   = "ranked"
	RankDegraded = "degraded"
)

var (
	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_total",
			Help:      "Listing enrichment outcomes",
		},
		[]string{"outcome"},
	)

	PersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_persist_failures_total",
			Help:      "Listing store writes that failed and were swallowed",
		},
	)

	ImageAnalysisFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_analysis_failures_total",
			Help:      "Per-image analysis failures omitted from a listing",
		},
	)

	RankingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_total",
			Help:      "Ranking outcomes",
		},
		[]string{"outcome"},
	)
)
