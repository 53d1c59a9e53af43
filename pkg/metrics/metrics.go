package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DriversOnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivers_online_total",
			Help: "Current number of online drivers",
		},
	)

	PendingRequestsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pending_requests",
			Help: "Current number of visible pending trip requests per driver",
		},
		[]string{"driver"},
	)

	TripTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trip_transitions_total",
			Help: "Total number of trip status transitions",
		},
		[]string{"from", "to"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of new-request notifications surfaced to drivers",
		},
		[]string{"channel", "status"},
	)

	CacheFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_fallbacks_total",
			Help: "Total number of reads served from the snapshot cache after a fetch failure",
		},
		[]string{"kind"},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
	)
)

// RecordTransition records a trip status transition.
func RecordTransition(from, to string) {
	TripTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordNotification records a delivered or failed driver notification.
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
