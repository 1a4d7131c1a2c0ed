package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

var testUpgrader = websocket.Upgrader{}

// echoServer upgrades and echoes every frame back unchanged.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := echoServer(t)

	connector := &WebSocketConnector{URL: wsURL(srv), Logger: logging.NewNop()}
	conn, err := connector.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close(context.Background())

	req, err := protocol.NewRequest(int64(1), "initialize", map[string]int{"protocolVersion": 1})
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), req))

	select {
	case msg := <-conn.Incoming():
		back, ok := msg.(*protocol.Request)
		require.True(t, ok)
		assert.Equal(t, "initialize", back.Method)
	case <-time.After(2 * time.Second):
		t.Fatal("echo never arrived")
	}
}

func TestWebSocketConnectFailure(t *testing.T) {
	connector := &WebSocketConnector{URL: "ws://127.0.0.1:1", Logger: logging.NewNop()}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := connector.Connect(ctx)
	assert.Error(t, err)
}

func TestWebSocketCloseEndsStream(t *testing.T) {
	srv := echoServer(t)

	connector := &WebSocketConnector{URL: wsURL(srv), Logger: logging.NewNop()}
	conn, err := connector.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Close(context.Background()))
	require.NoError(t, conn.Close(context.Background()))

	select {
	case _, ok := <-conn.Incoming():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming not closed")
	}

	note, err := protocol.NewNotification("session/update", nil)
	require.NoError(t, err)
	assert.Error(t, conn.Send(context.Background(), note))
}
