package streeteasy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c := New(&Config{
		BaseURL:    server.URL + "/",
		Host:       "streeteasy-api.p.rapidapi.com",
		APIKey:     "rapid-key",
		Timeout:    time.Second,
		MaxRetries: retries,
		Logger:     zap.NewNop(),
	})
	c.backoff = time.Millisecond
	return c
}

func TestSearchRentals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rentals/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-rapidapi-key") != "rapid-key" ||
			r.Header.Get("x-rapidapi-host") != "streeteasy-api.p.rapidapi.com" {
			t.Errorf("missing rapidapi headers: %v", r.Header)
		}
		q := r.URL.Query()
		if q.Get("areas") != "all-downtown,all-midtown" || q.Get("maxPrice") != "10000" ||
			q.Get("minBaths") != "1" || q.Get("limit") != "15" || q.Get("noFee") != "false" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pagination":{"count":2,"nextOffset":15},
			"listings":[
				{"id":"1","price":3000,"status":"open","longitude":-73.99,"latitude":40.72,"url":"https://se/1"},
				{"id":"2","price":4100,"status":"open","longitude":-73.98,"latitude":40.75,"url":"https://se/2"}
			]}`))
	}, 0)

	resp, err := c.SearchRentals(context.Background(), filter.SearchFilters{}.ToSearchParams(0))
	if err != nil {
		t.Fatalf("SearchRentals: %v", err)
	}
	if resp.Pagination.NextOffset != 15 || len(resp.Listings) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Listings[1].Price != 4100 || resp.Listings[0].URL != "https://se/1" {
		t.Errorf("listings not decoded: %+v", resp.Listings)
	}
}

func TestSearchRentals_EmptyListings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"pagination":{"count":0}}`))
	}, 0)

	resp, err := c.SearchRentals(context.Background(), filter.SearchFilters{}.ToSearchParams(0))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Listings == nil {
		t.Error("expected empty, non-nil listings")
	}
}

func TestGetRental(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rentals/4455" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id":"4455","status":"open","address":"1 Main St","price":3500,
			"borough":"Manhattan","neighborhood":"Soho","propertyType":"condo",
			"sqft":800,"bedrooms":2,"bathrooms":1.5,
			"amenities":["Dishwasher","Pet Friendly"],"images":["https://img/a.jpg"],
			"noFee":true,"agents":["Jane"],"availableFrom":"2024-06-01","daysOnMarket":4}`))
	}, 0)

	d, err := c.GetRental(context.Background(), "4455")
	if err != nil {
		t.Fatalf("GetRental: %v", err)
	}
	if d.ID != "4455" || d.Bathrooms != 1.5 || !d.NoFee || d.PropertyType != "condo" {
		t.Errorf("unexpected listing %+v", d)
	}
	if len(d.Amenities) != 2 || d.Amenities[1] != "Pet Friendly" {
		t.Errorf("amenities = %v", d.Amenities)
	}
	if d.ImageAnalysis != nil {
		t.Errorf("raw record must not carry analysis")
	}
}

func TestGetRental_FillsMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price":1}`))
	}, 0)

	d, err := c.GetRental(context.Background(), "77")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "77" {
		t.Errorf("ID = %q", d.ID)
	}
}

func TestRetry_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}, 3)

	if _, err := c.GetRental(context.Background(), "1"); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetry_Exhausted429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, 2)

	_, err := c.GetRental(context.Background(), "1")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestNoRetry_ClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}, 3)

	_, err := c.GetRental(context.Background(), "missing")
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
	var statusErr *domain.UpstreamStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 status error, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown rental must match ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, calls = %d", calls.Load())
	}
}

func TestHealthCheck_FollowsLastRequest(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}, 0)
	ctx := context.Background()

	if err := c.HealthCheck(ctx); err != nil {
		t.Fatalf("no traffic yet, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("health check must not call the API, calls = %d", calls.Load())
	}

	status.Store(http.StatusBadGateway)
	_, _ = c.GetRental(ctx, "1")
	if err := c.HealthCheck(ctx); !errors.Is(err, domain.ErrCollaborator) {
		t.Errorf("expected failure after 502, got %v", err)
	}

	status.Store(http.StatusNotFound)
	_, _ = c.GetRental(ctx, "gone")
	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("404 comes from a working API, got %v", err)
	}

	status.Store(http.StatusUnauthorized)
	_, _ = c.GetRental(ctx, "1")
	status.Store(http.StatusOK)
	if _, err := c.GetRental(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("success must clear the failure, got %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
}

func TestMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}, 2)

	_, err := c.SearchRentals(context.Background(), filter.SearchFilters{}.ToSearchParams(0))
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 5)
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetRental(ctx, "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff must honor context cancellation")
	}
}

func TestBackoffFor(t *testing.T) {
	c := &Client{backoff: 250 * time.Millisecond}
	if got := c.backoffFor(1); got != 250*time.Millisecond {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := c.backoffFor(3); got != time.Second {
		t.Errorf("attempt 3 = %v", got)
	}
	if got := c.backoffFor(30); got != maxBackoff {
		t.Errorf("attempt 30 = %v, want cap", got)
	}
}
