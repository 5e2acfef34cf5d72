// Package enrichment attaches cached or freshly fetched detail to listing summaries.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/logger"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
)

const defaultImageConcurrency = 4

// Service runs the cache-or-fetch pipeline for one listing id at a time.
// Concurrent calls for the same id are not coordinated and may both re-analyze.
type Service struct {
	store            Store
	listings         Listings
	analyzer         Analyzer
	imageConcurrency int
	allowClear       bool
}

// New creates an enrichment service.
func New(store Store, listings Listings, analyzer Analyzer) *Service {
	return &Service{
		store:            store,
		listings:         listings,
		analyzer:         analyzer,
		imageConcurrency: defaultImageConcurrency,
	}
}

// WithImageConcurrency bounds the number of photos analyzed in parallel per listing.
func (s *Service) WithImageConcurrency(n int) *Service {
	if n > 0 {
		s.imageConcurrency = n
	}
	return s
}

// WithCacheClear enables ClearCache.
func (s *Service) WithCacheClear(allow bool) *Service {
	s.allowClear = allow
	return s
}

// Enrich returns the detailed record for id. currentPrice, when set, is the price just
// observed upstream and marks the cached copy stale if it differs.
//
// A cached record is stale when its price changed or it has photos but no analysis.
// Stale records are refreshed and persisted; fresh ones are returned untouched.
// A miss fetches the raw record upstream and persists it without analysis.
// Persistence failures are logged and swallowed; only a failed upstream fetch
// returns an error, matching domain.ErrEnrichment.
func (s *Service) Enrich(ctx context.Context, id string, currentPrice *int) (listing.DetailedListing, error) {
	log := logger.FromContext(ctx).With(zap.String("listing_id", id))

	cached, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		return s.refresh(ctx, log, cached, currentPrice), nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		log.Warn("Listing store read failed, fetching upstream", zap.Error(err))
	}

	fetched, err := s.listings.GetRental(ctx, id)
	if err != nil {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichFailed).Inc()
		return listing.DetailedListing{}, fmt.Errorf("enrich %s: %w: %w", id, domain.ErrEnrichment, err)
	}
	metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichMiss).Inc()

	// TODO: analyze photos here once first-write analysis is agreed; today the first
	// stale read after this one pays for it.
	s.persist(ctx, log, &fetched)
	log.Debug("Listing fetched upstream", zap.Int("images", len(fetched.Images)))

	return fetched, nil
}

// Detail returns the listing without a price hint.
func (s *Service) Detail(ctx context.Context, id string) (listing.DetailedListing, error) {
	return s.Enrich(ctx, id, nil)
}

// AnalyzeImage scores one photo on demand.
func (s *Service) AnalyzeImage(ctx context.Context, imageURL string) (analysis.ImageAnalysis, error) {
	a, err := s.analyzer.Analyze(ctx, imageURL)
	if err != nil {
		return analysis.ImageAnalysis{}, fmt.Errorf("analyze image: %w", err)
	}
	return a, nil
}

// ClearCache deletes every stored listing. Disabled unless WithCacheClear(true).
func (s *Service) ClearCache(ctx context.Context) error {
	if !s.allowClear {
		return domain.ErrCacheClearDisabled
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear listing cache: %w", err)
	}
	logger.FromContext(ctx).Info("Listing cache cleared")
	return nil
}

func (s *Service) refresh(
	ctx context.Context, log *zap.Logger, cached listing.DetailedListing, currentPrice *int,
) listing.DetailedListing {
	stalePrice := currentPrice != nil && *currentPrice != cached.Price
	staleAnalysis := cached.NeedsImageAnalysis()

	if !stalePrice && !staleAnalysis {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichHit).Inc()
		return cached
	}

	updated := cached.Clone()

	if stalePrice {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichStalePrice).Inc()
		log.Info("Listing price changed",
			zap.Int("old_price", cached.Price),
			zap.Int("new_price", *currentPrice),
		)
		updated.Price = *currentPrice
	}

	if !staleAnalysis {
		if err := s.store.UpdatePrice(ctx, updated.ID, updated.Price); err != nil {
			metrics.PersistFailuresTotal.Inc()
			log.Warn("Failed to persist listing price", zap.Error(err))
		}
		return updated
	}

	metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichStaleAnalysis).Inc()
	updated.ImageAnalysis = s.analyzeImages(ctx, log, updated.Images)
	s.persist(ctx, log, &updated)
	return updated
}

func (s *Service) persist(ctx context.Context, log *zap.Logger, d *listing.DetailedListing) {
	if err := s.store.Upsert(ctx, d); err != nil {
		metrics.PersistFailuresTotal.Inc()
		log.Warn("Failed to persist listing", zap.Error(err))
	}
}

// analyzeImages scores every photo. Failed photos are left out of the mapping.
func (s *Service) analyzeImages(ctx context.Context, log *zap.Logger, images []string) map[string]analysis.ImageAnalysis {
	var (
		mu  sync.Mutex
		out = make(map[string]analysis.ImageAnalysis, len(images))
		g   errgroup.Group
	)
	g.SetLimit(s.imageConcurrency)

	for _, img := range images {
		g.Go(func() error {
			a, err := s.analyzer.Analyze(ctx, img)
			if err != nil {
				metrics.ImageAnalysisFailuresTotal.Inc()
				log.Warn("Image analysis failed", zap.String("image", img), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[img] = a
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Debug("Images analyzed", zap.Int("images", len(images)), zap.Int("analyzed", len(out)))
	return out
}
