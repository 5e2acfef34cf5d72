// Package listing persists enriched listings in PostgreSQL or Redis.
package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	domlisting "github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

// Schema is the idempotent DDL for the Postgres driver.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS detailed_listings (
		id              TEXT PRIMARY KEY,
		status          TEXT             NOT NULL DEFAULT '',
		address         TEXT             NOT NULL DEFAULT '',
		price           INTEGER          NOT NULL DEFAULT 0,
		borough         TEXT             NOT NULL DEFAULT '',
		neighborhood    TEXT             NOT NULL DEFAULT '',
		property_type   TEXT             NOT NULL DEFAULT '',
		sqft            INTEGER          NOT NULL DEFAULT 0,
		bedrooms        DOUBLE PRECISION NOT NULL DEFAULT 0,
		bathrooms       DOUBLE PRECISION NOT NULL DEFAULT 0,
		amenities       TEXT[]           NOT NULL DEFAULT '{}',
		description     TEXT             NOT NULL DEFAULT '',
		images          TEXT[]           NOT NULL DEFAULT '{}',
		image_analysis  JSONB,
		no_fee          BOOLEAN          NOT NULL DEFAULT FALSE,
		agents          TEXT[]           NOT NULL DEFAULT '{}',
		available_from  TEXT             NOT NULL DEFAULT '',
		days_on_market  INTEGER          NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_detailed_listings_updated_at ON detailed_listings(updated_at)`,
}

var dataColumns = []string{
	"id", "status", "address", "price", "borough", "neighborhood", "property_type",
	"sqft", "bedrooms", "bathrooms", "amenities", "description", "images",
	"image_analysis", "no_fee", "agents", "available_from", "days_on_market",
}

var (
	selectQuery = `SELECT ` + strings.Join(dataColumns, ", ") + `, created_at, updated_at
		FROM detailed_listings WHERE id = $1`

	upsertQuery = buildUpsertQuery()

	updatePriceQuery = `UPDATE detailed_listings SET price = $2, updated_at = NOW() WHERE id = $1`

	clearQuery = `DELETE FROM detailed_listings`
)

// buildUpsertQuery keeps created_at on conflict and only replaces image_analysis
// when the incoming value is not NULL.
func buildUpsertQuery() string {
	placeholders := make([]string, len(dataColumns))
	updates := make([]string, 0, len(dataColumns))
	for i, c := range dataColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		switch c {
		case "id":
		case "image_analysis":
			updates = append(updates, "image_analysis = COALESCE(EXCLUDED.image_analysis, detailed_listings.image_analysis)")
		default:
			updates = append(updates, c+" = EXCLUDED."+c)
		}
	}
	updates = append(updates, "updated_at = NOW()")

	return `INSERT INTO detailed_listings (` + strings.Join(dataColumns, ", ") + `, created_at, updated_at)
		VALUES (` + strings.Join(placeholders, ", ") + `, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET ` + strings.Join(updates, ", ") + `
		RETURNING created_at, updated_at`
}

// sqlDB is the consumer interface for the Postgres driver (ISP).
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepo stores listings in a typed table.
type PostgresRepo struct {
	db sqlDB
}

// NewPostgresRepo creates a Postgres-backed listing store.
func NewPostgresRepo(db sqlDB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Get returns the stored listing or domain.ErrNotFound.
func (r *PostgresRepo) Get(ctx context.Context, id string) (domlisting.DetailedListing, error) {
	var (
		d        domlisting.DetailedListing
		analysis []byte
	)
	err := r.db.QueryRowContext(ctx, selectQuery, id).Scan(
		&d.ID, &d.Status, &d.Address, &d.Price, &d.Borough, &d.Neighborhood, &d.PropertyType,
		&d.Sqft, &d.Bedrooms, &d.Bathrooms, pq.Array(&d.Amenities), &d.Description, pq.Array(&d.Images),
		&analysis, &d.NoFee, pq.Array(&d.Agents), &d.AvailableFrom, &d.DaysOnMarket,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domlisting.DetailedListing{}, domain.ErrNotFound
		}
		return domlisting.DetailedListing{}, fmt.Errorf("select listing %s: %w: %w", id, domain.ErrDatabase, err)
	}

	if d.ImageAnalysis, err = decodeAnalysis(analysis); err != nil {
		return domlisting.DetailedListing{}, fmt.Errorf("decode listing %s: %w: %w", id, domain.ErrDatabase, err)
	}
	return d, nil
}

// Upsert inserts or replaces a listing and sets its stored timestamps on d.
func (r *PostgresRepo) Upsert(ctx context.Context, d *domlisting.DetailedListing) error {
	encoded, err := encodeAnalysis(d.ImageAnalysis)
	if err != nil {
		return fmt.Errorf("encode listing %s: %w: %w", d.ID, domain.ErrDatabase, err)
	}
	// lib/pq sends []byte as bytea; JSONB needs text.
	var analysisArg any
	if encoded != nil {
		analysisArg = string(encoded)
	}

	err = r.db.QueryRowContext(ctx, upsertQuery,
		d.ID, d.Status, d.Address, d.Price, d.Borough, d.Neighborhood, d.PropertyType,
		d.Sqft, d.Bedrooms, d.Bathrooms, pq.Array(nonNil(d.Amenities)), d.Description, pq.Array(nonNil(d.Images)),
		analysisArg, d.NoFee, pq.Array(nonNil(d.Agents)), d.AvailableFrom, d.DaysOnMarket,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w: %w", d.ID, domain.ErrDatabase, err)
	}
	return nil
}

// UpdatePrice overwrites the price of an existing listing.
func (r *PostgresRepo) UpdatePrice(ctx context.Context, id string, price int) error {
	res, err := r.db.ExecContext(ctx, updatePriceQuery, id, price)
	if err != nil {
		return fmt.Errorf("update price %s: %w: %w", id, domain.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update price %s: %w: %w", id, domain.ErrDatabase, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearAll deletes every stored listing.
func (r *PostgresRepo) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, clearQuery); err != nil {
		return fmt.Errorf("clear listings: %w: %w", domain.ErrDatabase, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
