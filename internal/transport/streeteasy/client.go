// Package streeteasy is the RapidAPI StreetEasy rentals client.
package streeteasy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/listing"
	"github.com/kailas-cloud/aptsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
)

const (
	serviceName = "streeteasy"

	opSearch = "search"
	opRental = "rental"

	defaultBackoff = 250 * time.Millisecond
	maxBackoff     = 4 * time.Second
	maxErrorBody   = 512
)

// Config holds the client settings.
type Config struct {
	BaseURL    string
	Host       string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
	Burst      int
	Logger     *zap.Logger
}

// Client calls the listings API. Every request waits on a shared token bucket and is
// retried with exponential backoff on 429, 5xx and transport errors.
type Client struct {
	baseURL    string
	host       string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger

	// lastFailure is the error of the most recent request that did not reach a
	// working API, or nil.
	lastFailure atomic.Pointer[error]
}

// New creates a listings API client.
func New(cfg *Config) *Client {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		host:       cfg.Host,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    defaultBackoff,
		limiter:    rate.NewLimiter(limit, burst),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:     cfg.Logger,
	}
}

type searchResponse struct {
	Pagination listing.Pagination `json:"pagination"`
	Listings   []listing.Listing  `json:"listings"`
}

// SearchRentals returns one page of rental summaries.
func (c *Client) SearchRentals(ctx context.Context, p filter.SearchParams) (listing.SearchResponse, error) {
	q := url.Values{}
	for k, v := range p.Query() {
		q.Set(k, v)
	}

	var resp searchResponse
	if err := c.get(ctx, opSearch, "/rentals/search?"+q.Encode(), &resp); err != nil {
		return listing.SearchResponse{}, err
	}

	if resp.Listings == nil {
		resp.Listings = []listing.Listing{}
	}
	return listing.SearchResponse(resp), nil
}

// GetRental returns the full record for one listing. An unknown id also matches domain.ErrNotFound.
func (c *Client) GetRental(ctx context.Context, id string) (listing.DetailedListing, error) {
	var d listing.DetailedListing
	if err := c.get(ctx, opRental, "/rentals/"+url.PathEscape(id), &d); err != nil {
		var statusErr *domain.UpstreamStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return listing.DetailedListing{}, fmt.Errorf("rental %s: %w: %w", id, domain.ErrNotFound, err)
		}
		return listing.DetailedListing{}, err
	}
	if d.ID == "" {
		d.ID = id
	}
	return d, nil
}

// HealthCheck reports the outcome of the most recent request. It never calls the
// API itself: every request is billed and shares the rate limit with real traffic.
func (c *Client) HealthCheck(_ context.Context) error {
	if p := c.lastFailure.Load(); p != nil {
		return fmt.Errorf("listings api: %w", *p)
	}
	return nil
}

// recordOutcome updates the health state. 400 and 404 answers come from a working
// API; a canceled caller says nothing about the upstream.
func (c *Client) recordOutcome(ctx context.Context, err error) {
	if err == nil {
		c.lastFailure.Store(nil)
		return
	}
	if ctx.Err() != nil {
		return
	}
	var statusErr *domain.UpstreamStatusError
	if errors.As(err, &statusErr) &&
		(statusErr.StatusCode == http.StatusBadRequest || statusErr.StatusCode == http.StatusNotFound) {
		c.lastFailure.Store(nil)
		return
	}
	c.lastFailure.Store(&err)
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	start := time.Now()
	defer func() {
		metrics.ListingsRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.ListingsRetriesTotal.WithLabelValues(op).Inc()
			c.logger.Debug("Retrying listings API request",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, c.backoffFor(attempt)); err != nil {
				break
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("rate limiter: %w: %w", domain.ErrCollaborator, err)
			break
		}

		lastErr = c.do(ctx, path, out)
		if lastErr == nil {
			metrics.ListingsRequestsTotal.WithLabelValues(op, "success").Inc()
			c.recordOutcome(ctx, nil)
			return nil
		}
		if !retryable(lastErr) {
			break
		}
	}

	metrics.ListingsRequestsTotal.WithLabelValues(op, "error").Inc()
	c.recordOutcome(ctx, lastErr)
	return fmt.Errorf("listings api %s: %w", op, lastErr)
}

func (c *Client) do(ctx context.Context, path string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamStatusError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrCollaborator, err)
	}
	return nil
}

func (c *Client) backoffFor(attempt int) time.Duration {
	d := c.backoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

// transportError marks network failures, which are always retryable.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "transport: " + e.err.Error() }

func (e *transportError) Unwrap() []error { return []error{domain.ErrCollaborator, e.err} }

func retryable(err error) bool {
	var statusErr *domain.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var tErr *transportError
	if errors.As(err, &tErr) {
		return !errors.Is(err, context.Canceled)
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
