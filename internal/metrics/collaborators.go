package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbound collaborator metrics: listings API, vision, preference chat.
var (
	ListingsRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_api_requests_total",
			Help:      "Total listings API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	ListingsRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listings_api_request_duration_seconds",
			Help:      "Listings API request duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"operation"},
	)

	ListingsRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_api_retries_total",
			Help:      "Listings API retry attempts",
		},
		[]string{"operation"},
	)

	VisionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_requests_total",
			Help:      "Image analysis requests by status",
		},
		[]string{"status"},
	)

	VisionRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Image analysis request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	PreferencesRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preferences_requests_total",
			Help:      "Preference extraction requests by status",
		},
		[]string{"status"},
	)
)
