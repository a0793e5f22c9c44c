package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagetext_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagetext_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extraction metrics
	extractRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagetext_extract_requests_total",
			Help: "Total number of extraction requests",
		},
		[]string{"status"}, // status: complete, partial_success, failed, error
	)

	extractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagetext_extract_duration_seconds",
			Help:    "Document extraction duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	pagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagetext_pages_processed_total",
			Help: "Total number of pages processed, by page outcome",
		},
		[]string{"status"}, // status: ok, timeout, engine_error, skipped
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagetext_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagetext_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)
)
