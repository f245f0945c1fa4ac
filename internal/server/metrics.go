package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blue_onyx_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blue_onyx_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	detectionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blue_onyx_detection_requests_total",
			Help: "Total number of detection requests by outcome",
		},
		[]string{"outcome"}, // success, busy, timeout, malformed, inference_failure
	)

	detectionInferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blue_onyx_detection_inference_duration_seconds",
			Help:    "Pure inference call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	detectionCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blue_onyx_detections_per_request",
			Help:    "Number of detections returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blue_onyx_queue_depth",
			Help: "Current number of items buffered in the request queue",
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blue_onyx_stats_websocket_connections",
			Help: "Current number of open /stats/ws connections",
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blue_onyx_upload_size_bytes",
			Help:    "Size of uploaded JPEG frames in bytes",
			Buckets: []float64{10 * 1024, 50 * 1024, 100 * 1024, 500 * 1024, 1024 * 1024, 5 * 1024 * 1024},
		},
	)
)
