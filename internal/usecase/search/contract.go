package search

import (
	"context"

	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/aptsearch/internal/usecase/ranking"
)

// Listings runs the upstream rental search.
type Listings interface {
	SearchRentals(ctx context.Context, p filter.SearchParams) (listing.SearchResponse, error)
}

// Enricher attaches detail to a single listing.
type Enricher interface {
	Enrich(ctx context.Context, id string, currentPrice *int) (listing.DetailedListing, error)
}

// Ranker reorders search results by similarity to a query.
type Ranker interface {
	RankListings(ctx context.Context, query string, listings []listing.Listing) ranking.Ranked[listing.Listing]
}
