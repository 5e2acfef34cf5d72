package aptsearch

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	chiTransport "github.com/kailas-cloud/aptsearch/internal/transport/chi"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidFilters     = domain.ErrInvalidFilters
	ErrCacheClearDisabled = domain.ErrCacheClearDisabled
	ErrRateLimited        = domain.ErrRateLimited
	ErrEnrichment         = domain.ErrEnrichment
	ErrCollaborator       = domain.ErrCollaborator
	ErrDatabase           = domain.ErrDatabase
	// ErrUnauthorized signals a missing or rejected API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest signals a request the server could not parse.
	ErrBadRequest = errors.New("bad request")
)

var codeSentinels = map[chiTransport.ErrorCode]error{
	chiTransport.ErrorCodeValidationFailed:   ErrInvalidFilters,
	chiTransport.ErrorCodeListingNotFound:    ErrNotFound,
	chiTransport.ErrorCodeCacheClearDisabled: ErrCacheClearDisabled,
	chiTransport.ErrorCodeRateLimited:        ErrRateLimited,
	chiTransport.ErrorCodeEnrichmentFailed:   ErrEnrichment,
	chiTransport.ErrorCodeUpstreamError:      ErrCollaborator,
	chiTransport.ErrorCodeDatabaseError:      ErrDatabase,
	chiTransport.ErrorCodeUnauthorized:       ErrUnauthorized,
	chiTransport.ErrorCodeBadRequest:         ErrBadRequest,
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aptsearch: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the error code to its sentinel. Unknown codes unwrap to nil.
func (e *APIError) Unwrap() error {
	return codeSentinels[chiTransport.ErrorCode(e.Code)]
}
