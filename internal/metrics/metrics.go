package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry Metrics
var (
	// RegistryClients tracks the number of registered connections
	RegistryClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_clients_current",
			Help: "Current number of connections held by the registry",
		},
	)

	// RegistryRooms tracks the number of non-empty rooms seen by the last publish
	RegistryRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_rooms_current",
			Help: "Number of non-empty rooms at the last publish cycle",
		},
	)
)

// Broadcast Metrics
var (
	// BroadcastMessagesTotal tracks delivered messages by kind (room/synthetic/inject/direct)
	BroadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Total messages queued for delivery by kind",
		},
		[]string{"kind"},
	)

	// BroadcastSkippedTotal tracks recipients skipped because they were closed or slow
	BroadcastSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_skipped_total",
			Help: "Total recipients skipped because the connection was closed or slow",
		},
	)

	// BroadcastSlowClientsEvicted tracks clients closed because their buffer was full
	BroadcastSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients closed due to buffer full",
		},
	)
)

// Periodic Task Metrics
var (
	// SweeperEvictionsTotal tracks connections evicted for staleness
	SweeperEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_evictions_total",
			Help: "Total connections evicted by the liveness sweeper",
		},
	)

	// SweeperRunsTotal tracks completed sweep cycles
	SweeperRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_runs_total",
			Help: "Total liveness sweep cycles",
		},
	)

	// PublisherCycleDuration tracks how long one publish cycle takes
	PublisherCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "publisher_cycle_duration_seconds",
			Help:    "Duration of one periodic publish cycle in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, 1},
		},
	)
)

// Dispatcher Metrics
var (
	// InboundMessagesTotal tracks inbound messages by action
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_messages_total",
			Help: "Total inbound messages by action",
		},
		[]string{"action"},
	)

	// MalformedMessagesTotal tracks dropped inbound messages that failed to parse
	MalformedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbound_malformed_messages_total",
			Help: "Total inbound messages dropped as malformed",
		},
	)

	// AdminCommandsTotal tracks authorized admin commands by command
	AdminCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_commands_total",
			Help: "Total authorized admin commands by command",
		},
		[]string{"command"},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks total WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketConnectionsRejected tracks rejected connection attempts by reason
	WebSocketConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Total WebSocket connections rejected by reason (rate_limit/per_ip_limit/global_limit)",
		},
		[]string{"reason"},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketConnectionDuration tracks WebSocket connection duration
	WebSocketConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_connection_duration_seconds",
			Help:    "WebSocket connection duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)

	// WebSocketPingFailures tracks WebSocket ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures (client not responding)",
		},
	)
)

// HTTP Metrics
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPInFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Handler serves the default registry, which also carries the Go runtime and
// process collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
