package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	healthuc "github.com/kailas-cloud/aptsearch/internal/usecase/health"
	"github.com/kailas-cloud/aptsearch/internal/usecase/preferences"
	"github.com/kailas-cloud/aptsearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/aptsearch/internal/usecase/search"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, f filter.SearchFilters, query string) (searchuc.Page, error)
}

func (m *mockSearcher) SearchRanked(ctx context.Context, f filter.SearchFilters, query string) (searchuc.Page, error) {
	return m.searchFn(ctx, f, query)
}

type mockRanker struct {
	rankFn func(ctx context.Context, query string, ls []listing.DetailedListing) ranking.Ranked[listing.DetailedListing]
}

func (m *mockRanker) Rank(
	ctx context.Context, query string, ls []listing.DetailedListing,
) ranking.Ranked[listing.DetailedListing] {
	return m.rankFn(ctx, query, ls)
}

type mockEnricher struct {
	detailFn  func(ctx context.Context, id string) (listing.DetailedListing, error)
	enrichFn  func(ctx context.Context, id string, price *int) (listing.DetailedListing, error)
	analyzeFn func(ctx context.Context, url string) (analysis.ImageAnalysis, error)
	clearFn   func(ctx context.Context) error
}

func (m *mockEnricher) Detail(ctx context.Context, id string) (listing.DetailedListing, error) {
	return m.detailFn(ctx, id)
}

func (m *mockEnricher) Enrich(ctx context.Context, id string, price *int) (listing.DetailedListing, error) {
	return m.enrichFn(ctx, id, price)
}

func (m *mockEnricher) AnalyzeImage(ctx context.Context, url string) (analysis.ImageAnalysis, error) {
	return m.analyzeFn(ctx, url)
}

func (m *mockEnricher) ClearCache(ctx context.Context) error {
	return m.clearFn(ctx)
}

type mockPreferences struct {
	extractFn func(ctx context.Context, query string, history []domain.ChatMessage) (preferences.Preferences, error)
}

func (m *mockPreferences) Extract(
	ctx context.Context, query string, history []domain.ChatMessage,
) (preferences.Preferences, error) {
	return m.extractFn(ctx, query, history)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testDeps struct {
	search *mockSearcher
	ranker *mockRanker
	enrich *mockEnricher
	prefs  *mockPreferences
	health *mockHealth
}

func newTestServer(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()
	d := &testDeps{
		search: &mockSearcher{},
		ranker: &mockRanker{},
		enrich: &mockEnricher{},
		prefs:  &mockPreferences{},
		health: &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
	s := NewServer(d.search, d.ranker, d.enrich, d.prefs, d.health, zap.NewNop())
	return s.Handler(), d
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}

func intPtr(v int) *int { return &v }

func kitchenListing(id string) listing.DetailedListing {
	return listing.DetailedListing{
		ID:     id,
		Price:  3000,
		Images: []string{"k.jpg"},
		ImageAnalysis: map[string]analysis.ImageAnalysis{
			"k.jpg": {RoomType: "kitchen", ModernScore: 4, NaturalLightScore: 4},
		},
	}
}
