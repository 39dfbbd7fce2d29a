// Package metrics exposes Prometheus instrumentation for the HTTP API, the
// websocket transport and mention delivery. Collectors are registered with
// the default registry on import; /metrics serves them via promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoshare_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain Metrics
	CommentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoshare_comments_created_total",
			Help: "Total number of comments added to photos",
		},
	)

	PhotosUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoshare_photos_uploaded_total",
			Help: "Total number of photos uploaded",
		},
	)

	// MentionDeliveries counts one event per mentioned user: "delivered" when
	// at least one live connection accepted it, "dropped" otherwise.
	MentionDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_mention_notifications_total",
			Help: "Mention notifications by outcome",
		},
		[]string{"result"},
	)

	// WebSocket Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photoshare_websocket_connections_active",
			Help: "Current number of open websocket connections",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_websocket_messages_received_total",
			Help: "Websocket frames received from clients, by message type",
		},
		[]string{"type"},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photoshare_websocket_messages_dropped_total",
			Help: "Outbound websocket messages dropped because the send buffer was full",
		},
	)
)

// RecordAPIRequest records one completed HTTP request. route is the chi
// route pattern, not the raw path, to keep label cardinality bounded.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMentionDelivery records the outcome of fanning one comment's
// notification out to its mentioned users.
func RecordMentionDelivery(delivered, dropped int) {
	MentionDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	MentionDeliveries.WithLabelValues("dropped").Add(float64(dropped))
}
