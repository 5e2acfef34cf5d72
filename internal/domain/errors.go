package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a listing missing from the store. It is a valid lookup outcome.
	ErrNotFound = errors.New("listing not found")
	// ErrCollaborator signals that a third-party API was unreachable, rate limited or malformed.
	ErrCollaborator = errors.New("upstream collaborator error")
	// ErrDatabase signals a listing store failure.
	ErrDatabase = errors.New("database error")
	// ErrEnrichment signals a terminal failure to produce listing detail.
	ErrEnrichment = errors.New("listing enrichment failed")
	// ErrRateLimited signals a rate limit hit on an upstream API.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidFilters signals malformed search filters.
	ErrInvalidFilters = errors.New("invalid search filters")
	// ErrCacheClearDisabled signals that bulk cache clearing is turned off.
	ErrCacheClearDisabled = errors.New("cache clear disabled")
)

// ErrAnalysis signals an image analysis failure. It also matches ErrCollaborator.
var ErrAnalysis = fmt.Errorf("image analysis failed: %w", ErrCollaborator)

// UpstreamStatusError carries the HTTP status returned by a collaborator.
type UpstreamStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap classifies 429 as ErrRateLimited and everything else as ErrCollaborator.
func (e *UpstreamStatusError) Unwrap() error {
	if e.StatusCode == 429 {
		return ErrRateLimited
	}
	return ErrCollaborator
}

// Retryable reports whether the call may succeed if repeated.
func (e *UpstreamStatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
