// Package search orchestrates the upstream rental search, enrichment and post-filtering.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/aptsearch/internal/logger"
)

const defaultConcurrency = 5

// Page is one page of search results. Ranked is false when a query was given but
// ranking degraded to upstream order.
type Page struct {
	listing.SearchResponse
	Ranked bool
}

// Service handles rental searches.
type Service struct {
	listings    Listings
	enrich      Enricher
	ranker      Ranker
	pageSize    int
	concurrency int
}

// New creates a search service. ranker may be nil, which disables query ranking.
func New(listings Listings, enrich Enricher, ranker Ranker) *Service {
	return &Service{
		listings:    listings,
		enrich:      enrich,
		ranker:      ranker,
		pageSize:    filter.DefaultLimit,
		concurrency: defaultConcurrency,
	}
}

// WithPageSize sets the upstream page size.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// WithConcurrency bounds the number of listings enriched in parallel.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Search fetches one page upstream, enriches every summary and applies the
// amenity and pet post-filter. Pagination.Count is the filtered count.
// Only the upstream search failing fails the call.
func (s *Service) Search(ctx context.Context, f filter.SearchFilters) (listing.SearchResponse, error) {
	if err := f.Validate(); err != nil {
		return listing.SearchResponse{}, err
	}

	params := f.ToSearchParams(s.pageSize)
	logger.FromContext(ctx).Debug("Searching rentals",
		zap.String("areas", params.Areas),
		zap.Int("offset", params.Offset),
	)

	resp, err := s.listings.SearchRentals(ctx, params)
	if err != nil {
		if !errors.Is(err, domain.ErrCollaborator) {
			err = fmt.Errorf("%w: %w", domain.ErrCollaborator, err)
		}
		return listing.SearchResponse{}, fmt.Errorf("search rentals: %w", err)
	}

	enriched := s.enrichAll(ctx, resp.Listings)
	filtered := f.Apply(enriched)

	return listing.SearchResponse{
		Pagination: listing.Pagination{
			Count:      len(filtered),
			NextOffset: resp.Pagination.NextOffset,
		},
		Listings: filtered,
	}, nil
}

// SearchRanked runs Search and reorders the page by similarity to query.
// A blank query or a missing ranker returns upstream order with Ranked false.
func (s *Service) SearchRanked(ctx context.Context, f filter.SearchFilters, query string) (Page, error) {
	resp, err := s.Search(ctx, f)
	if err != nil {
		return Page{}, err
	}
	if s.ranker == nil || strings.TrimSpace(query) == "" || len(resp.Listings) == 0 {
		return Page{SearchResponse: resp}, nil
	}

	ranked := s.ranker.RankListings(ctx, query, resp.Listings)
	resp.Listings = ranked.Listings
	return Page{SearchResponse: resp, Ranked: !ranked.Degraded}, nil
}

// enrichAll enriches every summary in place. A failed listing keeps its summary and
// is marked EnrichmentFailed.
func (s *Service) enrichAll(ctx context.Context, summaries []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, len(summaries))
	copy(out, summaries)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range out {
		g.Go(func() error {
			l := &out[i]
			price := l.Price
			d, err := s.enrich.Enrich(ctx, l.ID, &price)
			if err != nil {
				l.EnrichmentFailed = true
				logger.FromContext(ctx).Warn("Listing enrichment failed",
					zap.String("listing_id", l.ID),
					zap.Error(err),
				)
				return nil
			}
			l.Details = &d
			return nil
		})
	}
	_ = g.Wait()

	return out
}
