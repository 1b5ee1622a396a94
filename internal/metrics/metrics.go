package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dawarich_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dawarich_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	PointsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dawarich_points_created_total",
			Help: "Total number of location points stored",
		},
	)

	PointsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dawarich_points_deleted_total",
			Help: "Total number of location points deleted",
		},
	)

	// ExportsTotal counts finished export jobs by terminal status.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dawarich_exports_total",
			Help: "Total number of export jobs by final status",
		},
		[]string{"status"},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dawarich_export_duration_seconds",
			Help:    "Time spent generating an export file",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportPoints = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dawarich_export_points",
			Help:    "Number of points written per export",
			Buckets: prometheus.ExponentialBuckets(10, 10, 6),
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dawarich_stream_clients",
			Help: "Current number of live point stream subscribers",
		},
	)
)
