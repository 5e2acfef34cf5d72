// Package filter translates user search filters into upstream query parameters
// and applies the client-side post-filter.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
)

// Upstream defaults used when a filter is unset.
const (
	DefaultAreas    = "all-downtown,all-midtown"
	DefaultMinPrice = 0
	DefaultMaxPrice = 10000
	DefaultMinBeds  = 0
	DefaultMaxBeds  = 10
	DefaultMinBaths = 1
	DefaultLimit    = 15
)

const petFriendlyAmenity = "pet friendly"

// SearchFilters are the user-facing search constraints. Nil bounds fall back to defaults.
type SearchFilters struct {
	MinBedrooms   *int     `json:"minBedrooms,omitempty" validate:"omitempty,min=0"`
	MaxBedrooms   *int     `json:"maxBedrooms,omitempty" validate:"omitempty,min=0"`
	MinBaths      *float64 `json:"minBaths,omitempty" validate:"omitempty,min=0"`
	MinPrice      *int     `json:"minPrice,omitempty" validate:"omitempty,min=0"`
	MaxPrice      *int     `json:"maxPrice,omitempty" validate:"omitempty,min=0"`
	Neighborhoods []string `json:"neighborhoods,omitempty" validate:"dive,required"`
	Amenities     []string `json:"amenities,omitempty"`
	PetFriendly   bool     `json:"petFriendly,omitempty"`
	NoFee         *bool    `json:"noFee,omitempty"`
	Offset        int      `json:"offset,omitempty" validate:"min=0"`
}

// SearchParams is the upstream search query, one field per query parameter.
type SearchParams struct {
	Areas    string
	MinPrice int
	MaxPrice int
	MinBeds  int
	MaxBeds  int
	MinBaths float64
	NoFee    bool
	Limit    int
	Offset   int
}

// Validate rejects inverted ranges. Field-level bounds are checked by struct tags.
func (f SearchFilters) Validate() error {
	if f.MinBedrooms != nil && f.MaxBedrooms != nil && *f.MinBedrooms > *f.MaxBedrooms {
		return fmt.Errorf("minBedrooms %d exceeds maxBedrooms %d: %w",
			*f.MinBedrooms, *f.MaxBedrooms, domain.ErrInvalidFilters)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("minPrice %d exceeds maxPrice %d: %w",
			*f.MinPrice, *f.MaxPrice, domain.ErrInvalidFilters)
	}
	return nil
}

// ToSearchParams fills unset fields with the upstream defaults. limit <= 0 uses DefaultLimit.
func (f SearchFilters) ToSearchParams(limit int) SearchParams {
	if limit <= 0 {
		limit = DefaultLimit
	}
	p := SearchParams{
		Areas:    DefaultAreas,
		MinPrice: intOr(f.MinPrice, DefaultMinPrice),
		MaxPrice: intOr(f.MaxPrice, DefaultMaxPrice),
		MinBeds:  intOr(f.MinBedrooms, DefaultMinBeds),
		MaxBeds:  intOr(f.MaxBedrooms, DefaultMaxBeds),
		MinBaths: DefaultMinBaths,
		Limit:    limit,
		Offset:   f.Offset,
	}
	if len(f.Neighborhoods) > 0 {
		p.Areas = strings.Join(f.Neighborhoods, ",")
	}
	if f.MinBaths != nil {
		p.MinBaths = *f.MinBaths
	}
	if f.NoFee != nil {
		p.NoFee = *f.NoFee
	}
	return p
}

// Query renders the params as upstream query string pairs.
func (p SearchParams) Query() map[string]string {
	return map[string]string{
		"areas":    p.Areas,
		"minPrice": strconv.Itoa(p.MinPrice),
		"maxPrice": strconv.Itoa(p.MaxPrice),
		"minBeds":  strconv.Itoa(p.MinBeds),
		"maxBeds":  strconv.Itoa(p.MaxBeds),
		"minBaths": strconv.FormatFloat(p.MinBaths, 'f', -1, 64),
		"noFee":    strconv.FormatBool(p.NoFee),
		"limit":    strconv.Itoa(p.Limit),
		"offset":   strconv.Itoa(p.Offset),
	}
}

// Matches is the client-side post-filter. Every requested amenity must be a
// case-insensitive substring of some listing amenity. A listing without details
// passes only when no amenity or pet constraint is set.
func (f SearchFilters) Matches(l listing.Listing) bool {
	if l.Details == nil {
		return !f.needsDetails()
	}
	have := make([]string, len(l.Details.Amenities))
	for i, a := range l.Details.Amenities {
		have[i] = strings.ToLower(a)
	}
	for _, want := range f.Amenities {
		if !anyContains(have, strings.ToLower(want)) {
			return false
		}
	}
	if f.PetFriendly && !anyContains(have, petFriendlyAmenity) {
		return false
	}
	return true
}

func (f SearchFilters) needsDetails() bool {
	return len(f.Amenities) > 0 || f.PetFriendly
}

// Apply keeps the listings that match, preserving order.
func (f SearchFilters) Apply(listings []listing.Listing) []listing.Listing {
	out := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}

func anyContains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
