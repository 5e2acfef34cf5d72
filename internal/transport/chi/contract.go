package chi

import (
	"context"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	healthuc "github.com/kailas-cloud/aptsearch/internal/usecase/health"
	"github.com/kailas-cloud/aptsearch/internal/usecase/preferences"
	"github.com/kailas-cloud/aptsearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/aptsearch/internal/usecase/search"
)

// Searcher runs a filtered, optionally ranked search.
type Searcher interface {
	SearchRanked(ctx context.Context, f filter.SearchFilters, query string) (searchuc.Page, error)
}

// Ranker orders detailed listings by similarity to a query.
type Ranker interface {
	Rank(ctx context.Context, query string, listings []listing.DetailedListing) ranking.Ranked[listing.DetailedListing]
}

// Enricher serves listing detail and the cache endpoints.
type Enricher interface {
	Detail(ctx context.Context, id string) (listing.DetailedListing, error)
	Enrich(ctx context.Context, id string, currentPrice *int) (listing.DetailedListing, error)
	AnalyzeImage(ctx context.Context, imageURL string) (analysis.ImageAnalysis, error)
	ClearCache(ctx context.Context) error
}

// PreferenceExtractor reads search preferences out of free text.
type PreferenceExtractor interface {
	Extract(ctx context.Context, query string, history []domain.ChatMessage) (preferences.Preferences, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
