package listing

import (
	"context"
	"time"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	domlisting "github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

// mockHashStore implements hashStore for tests.
type mockHashStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetIfExistsFn func(ctx context.Context, key, field, value string) (bool, error)
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	delFn          func(ctx context.Context, keys ...string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockHashStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockHashStore) HSetIfExists(ctx context.Context, key, field, value string) (bool, error) {
	if m.hsetIfExistsFn != nil {
		return m.hsetIfExistsFn(ctx, key, field, value)
	}
	return true, nil
}

func (m *mockHashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockHashStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockHashStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// memHashStore is an in-memory hashStore with HSET merge semantics.
type memHashStore struct {
	mockHashStore
	data map[string]map[string]string
}

func newMemHashStore() *memHashStore {
	s := &memHashStore{data: map[string]map[string]string{}}
	s.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		h, ok := s.data[key]
		if !ok {
			h = map[string]string{}
			s.data[key] = h
		}
		for k, v := range fields {
			h[k] = v
		}
		return nil
	}
	s.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		out := map[string]string{}
		for k, v := range s.data[key] {
			out[k] = v
		}
		return out, nil
	}
	s.hsetIfExistsFn = func(_ context.Context, key, field, value string) (bool, error) {
		h, ok := s.data[key]
		if !ok {
			return false, nil
		}
		h[field] = value
		return true, nil
	}
	return s
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleListing() domlisting.DetailedListing {
	return domlisting.DetailedListing{
		ID:            "4412345",
		Status:        "open",
		Address:       "123 E 7th St #4B",
		Price:         3200,
		Borough:       "Manhattan",
		Neighborhood:  "East Village",
		PropertyType:  "rental",
		Sqft:          650,
		Bedrooms:      1,
		Bathrooms:     1,
		Amenities:     []string{"Dishwasher", "Laundry in Building", "Pet Friendly"},
		Description:   "Bright one bedroom",
		Images:        []string{"https://img/1.jpg", "https://img/2.jpg"},
		NoFee:         true,
		Agents:        []string{"Jane Broker"},
		AvailableFrom: "2026-04-01",
		DaysOnMarket:  3,
		ImageAnalysis: map[string]analysis.ImageAnalysis{
			"https://img/1.jpg": {Labels: []string{"kitchen", "window"}, RoomType: "kitchen", NaturalLightScore: 3, ModernScore: 2},
		},
	}
}
