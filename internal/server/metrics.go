package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boxscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxscan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"status"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boxscan_scan_duration_seconds",
			Help:    "End-to-end scan duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50},
		},
	)

	scanRegionsDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boxscan_scan_regions_detected",
			Help:    "Number of box regions detected per scan",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 12, 16},
		},
	)

	scanActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxscan_scan_actions_total",
			Help: "Recommended actions per region",
		},
		[]string{"action"},
	)

	enrollmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxscan_index_enrollments_total",
			Help: "Confirmed drug images enrolled into the visual index",
		},
	)

	correctionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxscan_corrections_total",
			Help: "Operator corrections received",
		},
		[]string{"kind"},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boxscan_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)
