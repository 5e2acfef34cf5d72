package enrichment

import (
	"context"
	"sync"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

// memStore is an in-memory Store that records writes.
type memStore struct {
	mu           sync.Mutex
	items        map[string]listing.DetailedListing
	getErr       error
	upsertErr    error
	priceErr     error
	clearErr     error
	upserts      int
	priceUpdates int
}

func newMemStore(items ...listing.DetailedListing) *memStore {
	s := &memStore{items: make(map[string]listing.DetailedListing)}
	for _, it := range items {
		s.items[it.ID] = it.Clone()
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (listing.DetailedListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return listing.DetailedListing{}, s.getErr
	}
	d, ok := s.items[id]
	if !ok {
		return listing.DetailedListing{}, domain.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *memStore) Upsert(_ context.Context, d *listing.DetailedListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.items[d.ID] = d.Clone()
	return nil
}

func (s *memStore) UpdatePrice(_ context.Context, id string, price int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceUpdates++
	if s.priceErr != nil {
		return s.priceErr
	}
	d, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Price = price
	s.items[id] = d
	return nil
}

func (s *memStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.items = make(map[string]listing.DetailedListing)
	return nil
}

type mockListings struct {
	mu    sync.Mutex
	getFn func(ctx context.Context, id string) (listing.DetailedListing, error)
	calls int
}

func (m *mockListings) GetRental(ctx context.Context, id string) (listing.DetailedListing, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return listing.DetailedListing{}, domain.ErrCollaborator
}

type mockAnalyzer struct {
	mu        sync.Mutex
	analyzeFn func(ctx context.Context, url string) (analysis.ImageAnalysis, error)
	calls     int
}

func (m *mockAnalyzer) Analyze(ctx context.Context, url string) (analysis.ImageAnalysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, url)
	}
	return analysis.ImageAnalysis{NaturalLightScore: 5, ModernScore: 5}, nil
}

func intPtr(v int) *int { return &v }

func cachedListing() listing.DetailedListing {
	return listing.DetailedListing{
		ID:        "100",
		Price:     3000,
		Amenities: []string{"Doorman"},
		Images:    []string{"https://img/1.jpg"},
		ImageAnalysis: map[string]analysis.ImageAnalysis{
			"https://img/1.jpg": {Labels: []string{"window"}, NaturalLightScore: 4, ModernScore: 2},
		},
	}
}
