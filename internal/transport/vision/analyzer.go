// Package vision scores listing photos with the Google Cloud Vision REST API.
package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/kailas-cloud/aptsearch/internal/domain"
	"github.com/kailas-cloud/aptsearch/internal/domain/analysis"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
)

// maxLabels matches the API default for label detection.
const maxLabels = 10

// Config holds the analyzer settings.
type Config struct {
	APIKey  string
	BaseURL string // empty = Google default endpoint
	Timeout time.Duration
	Logger  *zap.Logger
}

// Analyzer turns an image URL into an analysis.ImageAnalysis.
type Analyzer struct {
	images  *visionapi.ImagesService
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnalyzer creates the Cloud Vision client.
func NewAnalyzer(ctx context.Context, cfg *Config) (*Analyzer, error) {
	httpClient := &http.Client{
		Transport: &transport.APIKey{
			Key:       cfg.APIKey,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	return &Analyzer{
		images:  visionapi.NewImagesService(svc),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Analyze annotates one image with labels, dominant colors and objects in a single
// request and scores the result. Every failure matches domain.ErrAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, imageURL string) (analysis.ImageAnalysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{Source: &visionapi.ImageSource{ImageUri: imageURL}},
			Features: []*visionapi.Feature{
				{Type: "LABEL_DETECTION", MaxResults: maxLabels},
				{Type: "IMAGE_PROPERTIES"},
				{Type: "OBJECT_LOCALIZATION"},
			},
		}},
	}

	start := time.Now()
	resp, err := a.images.Annotate(req).Context(ctx).Do()
	metrics.VisionRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VisionRequestsTotal.WithLabelValues("error").Inc()
		return analysis.ImageAnalysis{}, fmt.Errorf("annotate %s: %w: %w", imageURL, domain.ErrAnalysis, err)
	}

	if len(resp.Responses) == 0 || resp.Responses[0] == nil {
		metrics.VisionRequestsTotal.WithLabelValues("error").Inc()
		return analysis.ImageAnalysis{}, fmt.Errorf("annotate %s: empty response: %w", imageURL, domain.ErrAnalysis)
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		metrics.VisionRequestsTotal.WithLabelValues("error").Inc()
		return analysis.ImageAnalysis{}, fmt.Errorf("annotate %s: %w: %w",
			imageURL, domain.ErrAnalysis, errors.New(r.Error.Message))
	}

	metrics.VisionRequestsTotal.WithLabelValues("success").Inc()

	return analysis.Score(labels(r), colors(r), objects(r)), nil
}

func labels(r *visionapi.AnnotateImageResponse) []string {
	out := make([]string, 0, len(r.LabelAnnotations))
	for _, l := range r.LabelAnnotations {
		if l != nil && l.Description != "" {
			out = append(out, l.Description)
		}
	}
	return out
}

func colors(r *visionapi.AnnotateImageResponse) []analysis.RGB {
	p := r.ImagePropertiesAnnotation
	if p == nil || p.DominantColors == nil {
		return nil
	}
	out := make([]analysis.RGB, 0, len(p.DominantColors.Colors))
	// A color with no components counts as black.
	for _, c := range p.DominantColors.Colors {
		if c == nil || c.Color == nil {
			out = append(out, analysis.RGB{})
			continue
		}
		out = append(out, analysis.RGB{Red: c.Color.Red, Green: c.Color.Green, Blue: c.Color.Blue})
	}
	return out
}

func objects(r *visionapi.AnnotateImageResponse) []string {
	out := make([]string, 0, len(r.LocalizedObjectAnnotations))
	for _, o := range r.LocalizedObjectAnnotations {
		if o != nil && o.Name != "" {
			out = append(out, o.Name)
		}
	}
	return out
}
