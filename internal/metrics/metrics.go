// Package metrics provides Prometheus instrumentation for the chat
// backend: gauges for connection and presence counts, counters for message
// throughput and fan-out failures.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lovelink_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// OnlineUsers tracks the number of distinct users with at least one connection.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lovelink_online_users",
		Help: "Current number of distinct online users",
	})

	// MessagesTotal counts message-send outcomes, labeled "sent", "blocked"
	// or "rejected".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lovelink_messages_total",
		Help: "Total number of message sends processed",
	}, []string{"outcome"})

	// BroadcastFailures counts events that could not be published to the
	// fan-out channel layer.
	BroadcastFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lovelink_broadcast_failures_total",
		Help: "Total number of failed event broadcasts",
	})

	// NotificationFailures counts best-effort notification fan-outs that
	// were logged and swallowed.
	NotificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lovelink_notification_failures_total",
		Help: "Total number of failed notification fan-outs",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		OnlineUsers,
		MessagesTotal,
		BroadcastFailures,
		NotificationFailures,
	)
}

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
