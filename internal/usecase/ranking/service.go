// Package ranking orders listings by embedding similarity to a free-text query.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/logger"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
)

const defaultConcurrency = 4

// Ranked is the outcome of a ranking call. Degraded means Listings are in input order
// because an embedding failed; Err holds the cause.
type Ranked[T any] struct {
	Listings []T
	Degraded bool
	Err      error
}

// Service ranks listings by cosine similarity of their summary text to a query.
type Service struct {
	embed       Embedder
	concurrency int
}

// New creates a ranking service.
func New(embed Embedder) *Service {
	return &Service{embed: embed, concurrency: defaultConcurrency}
}

// WithConcurrency bounds the number of embedding calls in flight per ranking.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Rank orders detailed listings by descending similarity. It never fails: on any
// embedding error the input is returned unchanged with Degraded set.
func (s *Service) Rank(ctx context.Context, query string, listings []listing.DetailedListing) Ranked[listing.DetailedListing] {
	return rank(ctx, s, query, listings, func(d listing.DetailedListing) string {
		return d.SummaryText()
	})
}

// RankListings orders search results by their details. Listings without details
// get an empty summary.
func (s *Service) RankListings(ctx context.Context, query string, listings []listing.Listing) Ranked[listing.Listing] {
	return rank(ctx, s, query, listings, func(l listing.Listing) string {
		if l.Details == nil {
			return ""
		}
		return l.Details.SummaryText()
	})
}

func rank[T any](ctx context.Context, s *Service, query string, items []T, summary func(T) string) Ranked[T] {
	out := make([]T, len(items))
	copy(out, items)

	if len(items) == 0 || strings.TrimSpace(query) == "" {
		return Ranked[T]{Listings: out}
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = summary(it)
	}

	scores, err := s.similarities(ctx, query, texts)
	if err != nil {
		metrics.RankingTotal.WithLabelValues(metrics.RankDegraded).Inc()
		logger.FromContext(ctx).Warn("Ranking degraded, returning input order",
			zap.Int("listings", len(items)),
			zap.Error(err),
		)
		return Ranked[T]{Listings: out, Degraded: true, Err: err}
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	for i, j := range idx {
		out[i] = items[j]
	}

	metrics.RankingTotal.WithLabelValues(metrics.RankRanked).Inc()
	return Ranked[T]{Listings: out}
}

// similarities embeds the query and every text concurrently and returns the cosine
// similarity of each text to the query. The first failure cancels the rest.
func (s *Service) similarities(ctx context.Context, query string, texts []string) ([]float64, error) {
	vectors := make([][]float32, len(texts))
	var queryVec []float32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	g.Go(func() error {
		res, err := s.embed.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		queryVec = res.Embedding
		return nil
	})
	for i, text := range texts {
		if text == "" {
			continue
		}
		g.Go(func() error {
			res, err := s.embed.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed listing %d: %w", i, err)
			}
			vectors[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(texts))
	for i, v := range vectors {
		if v == nil {
			scores[i] = math.Inf(-1)
			continue
		}
		scores[i] = Cosine(queryVec, v)
	}
	return scores, nil
}

// Cosine returns (a·b)/(|a||b|). Mismatched lengths or a zero-magnitude vector yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
