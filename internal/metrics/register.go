package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers all aptsearch collectors with the default registry. Called once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ListingsRequestsTotal,
			ListingsRequestDuration,
			ListingsRetriesTotal,
			VisionRequestsTotal,
			VisionRequestDuration,
			PreferencesRequestsTotal,
			EnrichmentTotal,
			PersistFailuresTotal,
			ImageAnalysisFailuresTotal,
			RankingTotal,
		)
	})
}
