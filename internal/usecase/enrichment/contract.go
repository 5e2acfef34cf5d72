package enrichment

import (
	"context"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

// Store persists detailed listings keyed by id.
type Store interface {
	Get(ctx context.Context, id string) (listing.DetailedListing, error)
	Upsert(ctx context.Context, d *listing.DetailedListing) error
	UpdatePrice(ctx context.Context, id string, price int) error
	ClearAll(ctx context.Context) error
}

// Listings fetches full listing records from the upstream API.
type Listings interface {
	GetRental(ctx context.Context, id string) (listing.DetailedListing, error)
}

// Analyzer scores a single listing photo.
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (analysis.ImageAnalysis, error)
}
