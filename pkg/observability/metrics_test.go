package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConductorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConductorMetrics("test_conductor", reg)

	m.RoutedMessages.WithLabelValues("left_to_right", "request").Inc()
	m.RoutedMessages.WithLabelValues("left_to_right", "request").Inc()
	m.StrayResponses.Inc()
	m.PendingRequests.Inc()
	m.LiveConnections.Set(3)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.RoutedMessages.WithLabelValues("left_to_right", "request")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StrayResponses))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.LiveConnections))
}

func TestNewConductorMetricsDefaultNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConductorMetrics("", reg)

	m.BridgeSessions.Inc()
	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "acp_conductor_bridge_sessions_total" {
			found = true
		}
	}
	assert.True(t, found, "metrics use the default namespace")
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConductorMetrics("test_conductor", reg)
	m.LiveConnections.Set(2)

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
