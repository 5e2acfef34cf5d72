package aptsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	chiTransport "github.com/kailas-cloud/aptsearch/internal/transport/chi"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

// Client is the aptsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	obs        *observer
}

// New creates a Client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("aptsearch: invalid base url %q", baseURL)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.apiKey,
		timeout:    cfg.timeout,
		httpClient: cfg.httpClient,
		obs:        obs,
	}, nil
}

// Search runs a filtered search. A non-empty req.Query ranks the page by similarity.
func (c *Client) Search(ctx context.Context, req SearchRequest) (page SearchPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	err = c.do(ctx, http.MethodPost, "/api/v1/search", req, &page)
	return page, err
}

// Rank orders listings by similarity to query.
func (c *Client) Rank(ctx context.Context, query string, listings []DetailedListing) (res RankResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("rank", start, err) }()

	err = c.do(ctx, http.MethodPost, "/api/v1/rank", chiTransport.RankRequest{Query: query, Listings: listings}, &res)
	return res, err
}

// Listing returns one enriched listing. A non-nil currentPrice that differs from the
// stored price refreshes the record.
func (c *Client) Listing(ctx context.Context, id string, currentPrice *int) (d Detail, err error) {
	start := time.Now()
	defer func() { c.obs.observe("listing", start, err) }()

	path := "/api/v1/listings/" + url.PathEscape(id)
	if currentPrice != nil {
		path += "?price=" + strconv.Itoa(*currentPrice)
	}
	err = c.do(ctx, http.MethodGet, path, nil, &d)
	return d, err
}

// Preferences extracts search preferences from free text. history carries the
// previous turns when the server asked a follow-up question.
func (c *Client) Preferences(ctx context.Context, query string, history []ChatMessage) (p PreferencesResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("preferences", start, err) }()

	req := chiTransport.PreferencesRequest{Query: query, History: history}
	err = c.do(ctx, http.MethodPost, "/api/v1/preferences", req, &p)
	return p, err
}

// AnalyzeImage scores a single photo.
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (a ImageAnalysis, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_image", start, err) }()

	err = c.do(ctx, http.MethodPost, "/api/v1/images/analyze", chiTransport.AnalyzeImageRequest{ImageURL: imageURL}, &a)
	return a, err
}

// ClearCache drops every stored listing. Fails with ErrCacheClearDisabled unless
// the server allows it.
func (c *Client) ClearCache(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("clear_cache", start, err) }()

	return c.do(ctx, http.MethodPost, "/api/v1/cache/clear", nil, nil)
}

// Health reports server health. A degraded or failing server is not an error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var resp chiTransport.HealthResponse
	err = c.do(ctx, http.MethodGet, "/health", nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && resp.Status != "" {
		err = nil
	}
	if err != nil {
		return HealthStatus{}, err
	}
	return HealthStatus{Status: resp.Status, Checks: resp.Checks}, nil
}

// do sends one JSON request. On 503 from /health out is still filled so callers can
// read the report.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("aptsearch: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("aptsearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("aptsearch: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("aptsearch: decode response: %w", err)
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if path == "/health" && out != nil {
		_ = json.Unmarshal(raw, out)
	}
	return decodeAPIError(resp.StatusCode, raw)
}

func decodeAPIError(status int, raw []byte) *APIError {
	var e chiTransport.ErrorResponse
	if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{StatusCode: status, Code: string(e.Code), Message: e.Message}
}
