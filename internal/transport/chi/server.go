package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	healthuc "github.com/kailas-cloud/aptsearch/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the aptsearch HTTP API.
type Server struct {
	search        Searcher
	ranker        Ranker
	enrich        Enricher
	preferences   PreferenceExtractor
	health        HealthChecker
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	ranker Ranker,
	enrich Enricher,
	prefs PreferenceExtractor,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      search,
		ranker:      ranker,
		enrich:      enrich,
		preferences: prefs,
		health:      health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
	// Order matters: an enrichment failure caused by a 429 reports rate_limited.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFilters, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeListingNotFound),
		sentinelHandler(domain.ErrCacheClearDisabled, http.StatusForbidden, ErrorCodeCacheClearDisabled),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEnrichment, http.StatusBadGateway, ErrorCodeEnrichmentFailed),
		sentinelHandler(domain.ErrCollaborator, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrDatabase, http.StatusServiceUnavailable, ErrorCodeDatabaseError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/rank", s.Rank)
		r.Get("/listings/{id}", s.getListing)
		r.Post("/preferences", s.Preferences)
		r.Post("/images/analyze", s.AnalyzeImage)
		r.Post("/cache/clear", s.ClearCache)
	})
}

// Handler returns a router serving the API with no middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	page, err := s.search.SearchRanked(r.Context(), req.SearchFilters, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ListingView, len(page.Listings))
	for i, l := range page.Listings {
		items[i] = listingToView(l)
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Pagination: page.Pagination,
		Listings:   items,
		Ranked:     page.Ranked,
	})
}

// Rank handles POST /api/v1/rank.
func (s *Server) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := s.ranker.Rank(r.Context(), req.Query, req.Listings)

	items := make([]DetailView, len(res.Listings))
	for i, d := range res.Listings {
		items[i] = detailToView(d)
	}
	writeJSON(w, http.StatusOK, RankResponse{Listings: items, Ranked: !res.Degraded})
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
		return
	}

	var params GetListingParams
	err = runtime.BindQueryParameter("form", true, false, "price", r.URL.Query(), &params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("Invalid format for parameter price: %s", err))
		return
	}

	s.GetListing(w, r, id, params)
}

// GetListing handles GET /api/v1/listings/{id}.
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request, id string, params GetListingParams) {
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "listing id is required")
		return
	}
	if params.Price != nil && *params.Price < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "price must be non-negative")
		return
	}

	var (
		detail listing.DetailedListing
		err    error
	)
	if params.Price == nil {
		detail, err = s.enrich.Detail(r.Context(), id)
	} else {
		detail, err = s.enrich.Enrich(r.Context(), id, params.Price)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detailToView(detail))
}

// Preferences handles POST /api/v1/preferences.
func (s *Server) Preferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.preferences.Extract(r.Context(), req.Query, req.History)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PreferencesResponse{Preferences: p, Filters: p.Filters()})
}

// AnalyzeImage handles POST /api/v1/images/analyze.
func (s *Server) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeImageRequest
	if !s.decode(w, r, &req) {
		return
	}

	a, err := s.enrich.AnalyzeImage(r.Context(), req.ImageURL)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// ClearCache handles POST /api/v1/cache/clear.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.enrich.ClearCache(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Degraded still serves searches in summary form.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads and validates a JSON body. It writes the error response and
// returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFilters,
		domain.ErrNotFound,
		domain.ErrCacheClearDisabled,
		domain.ErrRateLimited,
		domain.ErrEnrichment,
		domain.ErrCollaborator,
		domain.ErrDatabase,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
