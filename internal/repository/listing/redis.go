package listing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	domlisting "github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

const keyPrefix = domain.KeyPrefix + "listing:"

// hashStore is the consumer interface for the Redis driver (ISP).
type hashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetIfExists(ctx context.Context, key, field, value string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// HashRepo stores one Redis hash per listing.
type HashRepo struct {
	store hashStore
	now   func() time.Time
}

// NewHashRepo creates a Redis-backed listing store.
func NewHashRepo(s hashStore) *HashRepo {
	return &HashRepo{store: s, now: time.Now}
}

// Get returns the stored listing or domain.ErrNotFound.
func (r *HashRepo) Get(ctx context.Context, id string) (domlisting.DetailedListing, error) {
	key := listingKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domlisting.DetailedListing{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrDatabase, err)
	}
	if len(m) == 0 {
		return domlisting.DetailedListing{}, domain.ErrNotFound
	}
	d, err := parseHashFields(m)
	if err != nil {
		return domlisting.DetailedListing{}, fmt.Errorf("decode %s: %w: %w", key, domain.ErrDatabase, err)
	}
	if d.ID == "" {
		d.ID = id
	}
	return d, nil
}

// Upsert writes every field. A listing without image analysis keeps the stored one.
// Timestamps are set on d.
func (r *HashRepo) Upsert(ctx context.Context, d *domlisting.DetailedListing) error {
	now := r.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	fields, err := buildHashFields(d)
	if err != nil {
		return fmt.Errorf("encode %s: %w: %w", d.ID, domain.ErrDatabase, err)
	}
	key := listingKey(d.ID)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w: %w", key, domain.ErrDatabase, err)
	}
	return nil
}

// UpdatePrice overwrites the price of an existing listing.
func (r *HashRepo) UpdatePrice(ctx context.Context, id string, price int) error {
	key := listingKey(id)
	ok, err := r.store.HSetIfExists(ctx, key, fPrice, strconv.Itoa(price))
	if err != nil {
		return fmt.Errorf("update price %s: %w: %w", key, domain.ErrDatabase, err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// ClearAll deletes every stored listing.
func (r *HashRepo) ClearAll(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan listings: %w: %w", domain.ErrDatabase, err)
	}
	const batch = 500
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		if err := r.store.Del(ctx, keys[start:end]...); err != nil {
			return fmt.Errorf("del listings: %w: %w", domain.ErrDatabase, err)
		}
	}
	return nil
}

func listingKey(id string) string {
	return keyPrefix + id
}
