// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the conductor.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConductorMetrics holds the Prometheus instruments the conductor updates
// while routing.
type ConductorMetrics struct {
	// RoutedMessages counts dispatches handled by the event loop, labelled
	// by direction (left_to_right, right_to_left) and kind (request,
	// notification, response).
	RoutedMessages *prometheus.CounterVec

	// StrayResponses counts responses dropped because no pending request
	// matched their id.
	StrayResponses prometheus.Counter

	// PendingRequests tracks the size of the correlation table.
	PendingRequests prometheus.Gauge

	// LiveConnections tracks connections currently owned by the conductor.
	LiveConnections prometheus.Gauge

	// HandshakeDuration observes how long the initialize exchange took, in
	// seconds.
	HandshakeDuration prometheus.Histogram

	// BridgeSessions counts MCP server URLs rewritten to bridge listeners.
	BridgeSessions prometheus.Counter
}

// NewConductorMetrics creates and registers the conductor's metrics. A nil
// registerer uses the default registry.
func NewConductorMetrics(namespace string, reg prometheus.Registerer) *ConductorMetrics {
	if namespace == "" {
		namespace = "acp_conductor"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &ConductorMetrics{
		RoutedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_messages_total",
			Help:      "Dispatches handled by the event loop.",
		}, []string{"direction", "kind"}),
		StrayResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stray_responses_total",
			Help:      "Responses dropped for lack of a pending request.",
		}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Forwarded requests awaiting a response.",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Connections currently owned by the conductor.",
		}),
		HandshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_duration_seconds",
			Help:      "Duration of the initialize exchange.",
			Buckets:   prometheus.DefBuckets,
		}),
		BridgeSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_sessions_total",
			Help:      "MCP server URLs rewritten to bridge listeners.",
		}),
	}

	reg.MustRegister(
		m.RoutedMessages,
		m.StrayResponses,
		m.PendingRequests,
		m.LiveConnections,
		m.HandshakeDuration,
		m.BridgeSessions,
	)
	return m
}

// MetricsHandler returns an HTTP handler exposing the given gatherer, for
// mounting on a /metrics endpoint. A nil gatherer uses the default
// registry.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
