package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of calls made to the fleet backend",
		},
		[]string{"method", "resource", "status"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "backend_request_duration_seconds",
			Help: "Duration of fleet backend calls in seconds",
		},
		[]string{"method", "resource"},
	)

	RidesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_completed_total",
			Help: "Total number of ride completion sequences by outcome",
		},
		[]string{"outcome"},
	)

	RideStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_step_failures_total",
			Help: "Ride completion steps that failed",
		},
		[]string{"step"},
	)

	RidesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rides_active",
			Help: "Number of rides currently held in memory",
		},
	)

	TrackingSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_subscribers",
			Help: "Open websocket connections on the tracking hub",
		},
	)
)
