package chi

import (
	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/aptsearch/internal/usecase/preferences"
)

// ErrorCode is the stable machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeListingNotFound    ErrorCode = "listing_not_found"
	ErrorCodeCacheClearDisabled ErrorCode = "cache_clear_disabled"
	ErrorCodeRateLimited        ErrorCode = "rate_limited"
	ErrorCodeEnrichmentFailed   ErrorCode = "enrichment_failed"
	ErrorCodeUpstreamError      ErrorCode = "upstream_error"
	ErrorCodeDatabaseError      ErrorCode = "database_error"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /api/v1/search body. A non-empty Query ranks the page.
type SearchRequest struct {
	filter.SearchFilters
	Query string `json:"query,omitempty" validate:"max=500"`
}

// SearchResponse is one page of enriched results.
type SearchResponse struct {
	Pagination listing.Pagination `json:"pagination"`
	Listings   []ListingView      `json:"listings"`
	Ranked     bool               `json:"ranked"`
}

// RankRequest is the POST /api/v1/rank body.
type RankRequest struct {
	Query    string                    `json:"query" validate:"required,max=500"`
	Listings []listing.DetailedListing `json:"listings" validate:"max=100"`
}

// RankResponse carries the reordered listings. Ranked is false when ranking degraded
// to input order.
type RankResponse struct {
	Listings []DetailView `json:"listings"`
	Ranked   bool         `json:"ranked"`
}

// PreferencesRequest is the POST /api/v1/preferences body.
type PreferencesRequest struct {
	Query   string               `json:"query" validate:"required,max=2000"`
	History []domain.ChatMessage `json:"history,omitempty" validate:"max=50,dive"`
}

// PreferencesResponse is the extracted preferences plus the search filters they map to.
type PreferencesResponse struct {
	preferences.Preferences
	Filters filter.SearchFilters `json:"filters"`
}

// AnalyzeImageRequest is the POST /api/v1/images/analyze body.
type AnalyzeImageRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GetListingParams are the query parameters of GET /api/v1/listings/{id}.
type GetListingParams struct {
	// Price is the caller's current price; a mismatch refreshes the stored record.
	Price *int
}

// DetailView is a detailed listing with its display scores.
type DetailView struct {
	listing.DetailedListing
	Scores listing.DisplayScores `json:"scores"`
}

// ListingView is a search summary whose details carry display scores.
// Its Details field shadows the embedded one in JSON.
type ListingView struct {
	listing.Listing
	Details *DetailView `json:"details,omitempty"`
}

func detailToView(d listing.DetailedListing) DetailView {
	return DetailView{DetailedListing: d, Scores: listing.Scores(d.ImageAnalysis)}
}

func listingToView(l listing.Listing) ListingView {
	v := ListingView{Listing: l}
	if l.Details != nil {
		dv := detailToView(*l.Details)
		v.Details = &dv
	}
	return v
}
