package aptsearch

import (
	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	chiTransport "github.com/kailas-cloud/aptsearch/internal/transport/chi"
	"github.com/kailas-cloud/aptsearch/internal/usecase/preferences"
)

// Wire types shared with the server.
type (
	// SearchFilters are the structured search constraints.
	SearchFilters = filter.SearchFilters
	// SearchRequest is a filtered search with an optional ranking query.
	SearchRequest = chiTransport.SearchRequest
	// SearchPage is one page of enriched, optionally ranked results.
	SearchPage = chiTransport.SearchResponse
	// Listing is a search summary with scored details.
	Listing = chiTransport.ListingView
	// Detail is a detailed listing with display scores.
	Detail = chiTransport.DetailView
	// DetailedListing is the raw detailed record accepted by Rank.
	DetailedListing = listing.DetailedListing
	// ImageAnalysis is the scored result for one photo.
	ImageAnalysis = analysis.ImageAnalysis
	// ChatMessage is one prior turn of a preferences conversation.
	ChatMessage = domain.ChatMessage
	// Preferences are the extracted preferences.
	Preferences = preferences.Preferences
)

// Chat roles.
const (
	RoleUser      = domain.RoleUser
	RoleAssistant = domain.RoleAssistant
)

// PreferencesResult is the extracted preferences plus the filters they map to.
type PreferencesResult = chiTransport.PreferencesResponse

// RankResult is the reordered listings. Ranked is false when the server fell back
// to input order.
type RankResult = chiTransport.RankResponse

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
