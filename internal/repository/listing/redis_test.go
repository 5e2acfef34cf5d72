package listing

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/aptsearch/internal/domain"
)

func newTestHashRepo(s hashStore) *HashRepo {
	r := NewHashRepo(s)
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestHashRepo_RoundTrip(t *testing.T) {
	store := newMemHashStore()
	repo := newTestHashRepo(store)
	ctx := context.Background()

	in := sampleListing()
	if err := repo.Upsert(ctx, &in); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !in.CreatedAt.Equal(fixedNow) || !in.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps not set: %v %v", in.CreatedAt, in.UpdatedAt)
	}

	got, err := repo.Get(ctx, in.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, in)
	}
}

func TestHashRepo_Get_NotFound(t *testing.T) {
	repo := newTestHashRepo(&mockHashStore{})
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHashRepo_Get_StoreError(t *testing.T) {
	repo := newTestHashRepo(&mockHashStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return nil, context.DeadlineExceeded
		},
	})
	_, err := repo.Get(context.Background(), "1")
	if !errors.Is(err, domain.ErrDatabase) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
}

func TestHashRepo_Get_Corrupt(t *testing.T) {
	repo := newTestHashRepo(&mockHashStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{fID: "1", fPrice: "cheap"}, nil
		},
	})
	_, err := repo.Get(context.Background(), "1")
	if !errors.Is(err, domain.ErrDatabase) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
}

func TestHashRepo_Upsert_KeepsAnalysisWhenAbsent(t *testing.T) {
	store := newMemHashStore()
	repo := newTestHashRepo(store)
	ctx := context.Background()

	first := sampleListing()
	if err := repo.Upsert(ctx, &first); err != nil {
		t.Fatal(err)
	}

	second := sampleListing()
	second.ImageAnalysis = nil
	second.Price = 3000
	if err := repo.Upsert(ctx, &second); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != 3000 {
		t.Errorf("Price = %d, want 3000", got.Price)
	}
	if len(got.ImageAnalysis) != 1 {
		t.Errorf("stored analysis lost: %+v", got.ImageAnalysis)
	}
}

func TestHashRepo_Upsert_KeyAndError(t *testing.T) {
	var gotKey string
	repo := newTestHashRepo(&mockHashStore{
		hsetFn: func(_ context.Context, key string, _ map[string]string) error {
			gotKey = key
			return errors.New("READONLY")
		},
	})
	in := sampleListing()
	err := repo.Upsert(context.Background(), &in)
	if !errors.Is(err, domain.ErrDatabase) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
	if gotKey != "aptsearch:listing:4412345" {
		t.Errorf("key = %q", gotKey)
	}
}

func TestHashRepo_UpdatePrice(t *testing.T) {
	store := newMemHashStore()
	repo := newTestHashRepo(store)
	ctx := context.Background()

	if err := repo.UpdatePrice(ctx, "absent", 100); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent listing, got %v", err)
	}

	in := sampleListing()
	if err := repo.Upsert(ctx, &in); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdatePrice(ctx, in.ID, 2950); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	got, _ := repo.Get(ctx, in.ID)
	if got.Price != 2950 {
		t.Errorf("Price = %d, want 2950", got.Price)
	}
}

func TestHashRepo_ClearAll(t *testing.T) {
	var pattern string
	var deleted []string
	repo := newTestHashRepo(&mockHashStore{
		scanFn: func(_ context.Context, p string) ([]string, error) {
			pattern = p
			return []string{"aptsearch:listing:1", "aptsearch:listing:2"}, nil
		},
		delFn: func(_ context.Context, keys ...string) error {
			deleted = append(deleted, keys...)
			return nil
		},
	})

	if err := repo.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if pattern != "aptsearch:listing:*" {
		t.Errorf("pattern = %q", pattern)
	}
	if strings.Join(deleted, ",") != "aptsearch:listing:1,aptsearch:listing:2" {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestHashRepo_ClearAll_Error(t *testing.T) {
	repo := newTestHashRepo(&mockHashStore{
		scanFn: func(context.Context, string) ([]string, error) {
			return nil, errors.New("connection reset")
		},
	})
	if err := repo.ClearAll(context.Background()); !errors.Is(err, domain.ErrDatabase) {
		t.Fatalf("expected ErrDatabase, got %v", err)
	}
}
