// Package listing holds the rental listing aggregates shared by the store, pipeline and API.
package listing

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
)

// Listing is a rental summary returned by the upstream search API.
// Details is nil until enrichment succeeds; EnrichmentFailed marks a degraded summary.
type Listing struct {
	ID               string           `json:"id"`
	Price            int              `json:"price"`
	Status           string           `json:"status"`
	Longitude        float64          `json:"longitude"`
	Latitude         float64          `json:"latitude"`
	URL              string           `json:"url"`
	Details          *DetailedListing `json:"details,omitempty"`
	EnrichmentFailed bool             `json:"enrichmentFailed,omitempty"`
}

// DetailedListing is the enriched, persisted record for one listing ID.
type DetailedListing struct {
	ID            string                            `json:"id"`
	Status        string                            `json:"status"`
	Address       string                            `json:"address"`
	Price         int                               `json:"price"`
	Borough       string                            `json:"borough"`
	Neighborhood  string                            `json:"neighborhood"`
	PropertyType  string                            `json:"propertyType"`
	Sqft          int                               `json:"sqft"`
	Bedrooms      float64                           `json:"bedrooms"`
	Bathrooms     float64                           `json:"bathrooms"`
	Amenities     []string                          `json:"amenities"`
	Description   string                            `json:"description"`
	Images        []string                          `json:"images"`
	ImageAnalysis map[string]analysis.ImageAnalysis `json:"imageAnalysis,omitempty"`
	NoFee         bool                              `json:"noFee"`
	Agents        []string                          `json:"agents"`
	AvailableFrom string                            `json:"availableFrom"`
	DaysOnMarket  int                               `json:"daysOnMarket"`
	CreatedAt     time.Time                         `json:"createdAt,omitzero"`
	UpdatedAt     time.Time                         `json:"updatedAt,omitzero"`
}

// Pagination is the page summary of a search response.
type Pagination struct {
	Count      int `json:"count"`
	NextOffset int `json:"nextOffset"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Pagination Pagination `json:"pagination"`
	Listings   []Listing  `json:"listings"`
}

// NeedsImageAnalysis reports whether the listing has photos but no analysis at all.
// Partial analysis is never topped up.
func (d *DetailedListing) NeedsImageAnalysis() bool {
	return len(d.Images) > 0 && len(d.ImageAnalysis) == 0
}

// Clone returns a deep copy so callers can mutate without touching cached state.
func (d *DetailedListing) Clone() DetailedListing {
	c := *d
	c.Amenities = cloneStrings(d.Amenities)
	c.Images = cloneStrings(d.Images)
	c.Agents = cloneStrings(d.Agents)
	if d.ImageAnalysis != nil {
		c.ImageAnalysis = make(map[string]analysis.ImageAnalysis, len(d.ImageAnalysis))
		for k, v := range d.ImageAnalysis {
			v.Labels = cloneStrings(v.Labels)
			c.ImageAnalysis[k] = v
		}
	}
	return c
}

// SummaryText renders the listing as plain text for embedding.
func (d *DetailedListing) SummaryText() string {
	parts := []string{
		formatNumber(d.Bedrooms) + " bedroom",
		formatNumber(d.Bathrooms) + " bathroom",
	}
	if d.Sqft > 0 {
		parts = append(parts, strconv.Itoa(d.Sqft)+" square feet")
	}
	parts = append(parts, d.PropertyType, d.Neighborhood, d.Borough)
	if d.NoFee {
		parts = append(parts, "no fee")
	} else {
		parts = append(parts, "fee")
	}
	parts = append(parts, d.Description)
	parts = append(parts, d.Amenities...)

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
