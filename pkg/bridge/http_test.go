package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
)

// recordingSink captures sink callbacks and optionally reacts to them.
type recordingSink struct {
	mu          sync.Mutex
	received    []string
	established []string
	messages    []json.RawMessage
	closedConns []string

	onReceived func(connID, url string)
	onMessage  func(connID string, payload json.RawMessage)
}

func (s *recordingSink) ConnectionReceived(connID, url string) {
	s.mu.Lock()
	s.received = append(s.received, connID+" "+url)
	cb := s.onReceived
	s.mu.Unlock()
	if cb != nil {
		go cb(connID, url)
	}
}

func (s *recordingSink) ConnectionEstablished(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.established = append(s.established, connID)
}

func (s *recordingSink) MessageReceived(connID string, payload json.RawMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, payload)
	cb := s.onMessage
	s.mu.Unlock()
	if cb != nil {
		go cb(connID, payload)
	}
}

func (s *recordingSink) ConnectionClosed(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closedConns = append(s.closedConns, connID)
}

func startBridge(t *testing.T, sink EventSink) *HTTPBridge {
	t.Helper()
	b := NewHTTPBridge(logging.NewNop())
	require.NoError(t, b.Start("127.0.0.1:0", sink))
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestRegisterServerRewritesURL(t *testing.T) {
	b := startBridge(t, &recordingSink{})

	local, err := b.RegisterServer(context.Background(), "key-1", "https://mcp.example.com/x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(local, "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(local, "/key-1"))
}

func TestRegisterServerAfterClose(t *testing.T) {
	b := NewHTTPBridge(nil)
	require.NoError(t, b.Start("", &recordingSink{}))
	require.NoError(t, b.Close(context.Background()))

	_, err := b.RegisterServer(context.Background(), "key", "https://mcp.example.com")
	assert.Error(t, err)
}

func TestPostExchange(t *testing.T) {
	sink := &recordingSink{}
	b := startBridge(t, sink)
	sink.mu.Lock()
	// Emulate the chain accepting the connect round-trip and answering the
	// first payload.
	sink.onReceived = func(connID, url string) {
		b.ConnectionAccepted(connID)
	}
	sink.onMessage = func(connID string, payload json.RawMessage) {
		b.Deliver(connID, json.RawMessage(`{"ok":true}`))
	}
	sink.mu.Unlock()

	local, err := b.RegisterServer(context.Background(), "key-2", "https://mcp.example.com/y")
	require.NoError(t, err)

	resp, err := http.Post(local, "application/json", bytes.NewBufferString(`{"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.received, 1)
	assert.Contains(t, sink.received[0], "https://mcp.example.com/y")
	require.Len(t, sink.messages, 1)
	assert.JSONEq(t, `{"method":"tools/list"}`, string(sink.messages[0]))
	assert.Len(t, sink.established, 1)
}

func TestRejectedConnection(t *testing.T) {
	sink := &recordingSink{}
	b := startBridge(t, sink)
	sink.mu.Lock()
	sink.onReceived = func(connID, url string) {
		b.ConnectionRejected(connID, context.DeadlineExceeded)
	}
	sink.mu.Unlock()

	local, err := b.RegisterServer(context.Background(), "key-3", "https://mcp.example.com/z")
	require.NoError(t, err)

	resp, err := http.Post(local, "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestUnknownSessionRejected(t *testing.T) {
	b := startBridge(t, &recordingSink{})

	resp, err := http.Post("http://"+b.Addr()+"/no-such-key", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelSessionClosesConnection(t *testing.T) {
	sink := &recordingSink{}
	b := startBridge(t, sink)
	sink.mu.Lock()
	sink.onReceived = func(connID, url string) {
		// Never accept; cancel instead.
		b.CancelSession("key-4")
	}
	sink.mu.Unlock()

	local, err := b.RegisterServer(context.Background(), "key-4", "https://mcp.example.com")
	require.NoError(t, err)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(local, "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewHTTPBridge(nil)
	require.NoError(t, b.Start("", &recordingSink{}))
	require.NoError(t, b.Close(context.Background()))
	require.NoError(t, b.Close(context.Background()))
}
