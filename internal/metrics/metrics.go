package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliverydesk_booking_transitions_total",
			Help: "Booking state machine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	LockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deliverydesk_lock_wait_seconds",
			Help:    "Time spent acquiring a distributed lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	LockReleaseMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deliverydesk_lock_release_misses_total",
			Help: "Releases skipped because the lock expired or changed owner",
		},
	)

	LocationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliverydesk_location_updates_total",
			Help: "Partner GPS updates by outcome",
		},
		[]string{"outcome"},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deliverydesk_live_clients",
			Help: "Currently connected live channel clients",
		},
	)

	LiveDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deliverydesk_live_dropped_messages_total",
			Help: "Live messages not delivered to a client whose buffer was full",
		},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deliverydesk_event_publish_failures_total",
			Help: "Failed publishes of booking events",
		},
		[]string{"sink"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deliverydesk_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome turns an error into a short metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
