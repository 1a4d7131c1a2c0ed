package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
)

// HTTPBridge is a Bridge backed by one loopback HTTP listener. Each
// registered server gets a per-session-key path; the agent's MCP client
// posts JSON payloads there and receives the relayed replies.
type HTTPBridge struct {
	logger logging.Logger
	sink   EventSink

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	sessions map[string]*session
	conns    map[string]*bridgeConn
	closed   bool
}

type session struct {
	key       string
	targetURL string
	sessionID string
	completed bool
	conn      *bridgeConn
}

type bridgeConn struct {
	id       string
	accepted chan struct{}
	rejected chan struct{}
	reason   error
	replies  chan json.RawMessage
	done     chan struct{}
	once     sync.Once
}

func newBridgeConn() *bridgeConn {
	return &bridgeConn{
		id:       uuid.NewString(),
		accepted: make(chan struct{}),
		rejected: make(chan struct{}),
		replies:  make(chan json.RawMessage, 1),
		done:     make(chan struct{}),
	}
}

func (c *bridgeConn) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHTTPBridge creates an HTTP bridge. A nil logger discards diagnostics.
func NewHTTPBridge(logger logging.Logger) *HTTPBridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPBridge{
		logger:   logger,
		sessions: map[string]*session{},
		conns:    map[string]*bridgeConn{},
	}
}

// Start binds the listener and begins serving. addr may be empty, defaulting
// to an ephemeral loopback port.
func (b *HTTPBridge) Start(addr string, sink EventSink) error {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.ConnectionFailed("bridge listener", err)
	}

	b.mu.Lock()
	b.sink = sink
	b.listener = l
	b.server = &http.Server{Handler: b}
	b.mu.Unlock()

	go func() {
		if err := b.server.Serve(l); err != nil && err != http.ErrServerClosed {
			b.logger.Error("bridge listener failed", logging.Err(err))
		}
	}()
	b.logger.Info("bridge listening", logging.String("addr", l.Addr().String()))
	return nil
}

// RegisterServer implements Bridge.
func (b *HTTPBridge) RegisterServer(ctx context.Context, sessionKey, url string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errors.BridgeClosed()
	}
	if b.listener == nil {
		return "", errors.ConnectionClosed("bridge listener")
	}
	b.sessions[sessionKey] = &session{key: sessionKey, targetURL: url}
	return fmt.Sprintf("http://%s/%s", b.listener.Addr(), sessionKey), nil
}

// CompleteSession implements Bridge.
func (b *HTTPBridge) CompleteSession(sessionKey, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionKey]
	if !ok {
		b.logger.Warn("completing unknown bridge session", logging.String("key", sessionKey))
		return
	}
	s.sessionID = sessionID
	s.completed = true
}

// CancelSession implements Bridge.
func (b *HTTPBridge) CancelSession(sessionKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionKey]
	if !ok {
		return
	}
	if s.conn != nil {
		s.conn.close()
		delete(b.conns, s.conn.id)
	}
	delete(b.sessions, sessionKey)
}

// ConnectionAccepted implements Bridge.
func (b *HTTPBridge) ConnectionAccepted(connID string) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	b.mu.Unlock()
	if !ok {
		b.logger.Warn("accept for unknown bridged connection", logging.String("conn", connID))
		return
	}
	close(c.accepted)
}

// ConnectionRejected implements Bridge.
func (b *HTTPBridge) ConnectionRejected(connID string, reason error) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	if ok {
		delete(b.conns, connID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	c.reason = reason
	close(c.rejected)
	c.close()
}

// Deliver implements Bridge.
func (b *HTTPBridge) Deliver(connID string, payload json.RawMessage) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	b.mu.Unlock()
	if !ok {
		b.logger.Warn("reply for unknown bridged connection", logging.String("conn", connID))
		return
	}
	select {
	case c.replies <- payload:
	case <-c.done:
	}
}

// RemoteClosed implements Bridge.
func (b *HTTPBridge) RemoteClosed(connID string) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	if ok {
		delete(b.conns, connID)
	}
	b.mu.Unlock()
	if ok {
		c.close()
	}
}

// Close implements Bridge.
func (b *HTTPBridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	server := b.server
	conns := make([]*bridgeConn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.conns = map[string]*bridgeConn{}
	b.sessions = map[string]*session{}
	b.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	if server != nil {
		return server.Shutdown(ctx)
	}
	return nil
}

// ServeHTTP accepts one MCP payload per POST, lazily opening the logical
// bridged connection for the session on first use.
func (b *HTTPBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.Trim(r.URL.Path, "/")

	b.mu.Lock()
	s, ok := b.sessions[key]
	if !ok {
		b.mu.Unlock()
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	sink := b.sink
	conn := s.conn
	opening := false
	if conn == nil {
		conn = newBridgeConn()
		s.conn = conn
		b.conns[conn.id] = conn
		opening = true
	}
	target := s.targetURL
	b.mu.Unlock()

	if opening {
		sink.ConnectionReceived(conn.id, target)
	}

	select {
	case <-conn.accepted:
		if opening {
			sink.ConnectionEstablished(conn.id)
		}
	case <-conn.rejected:
		http.Error(w, fmt.Sprintf("connect failed: %v", conn.reason), http.StatusBadGateway)
		return
	case <-conn.done:
		http.Error(w, "connection closed", http.StatusGone)
		return
	case <-r.Context().Done():
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	sink.MessageReceived(conn.id, body)

	select {
	case reply := <-conn.replies:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(reply)
	case <-conn.done:
		http.Error(w, "connection closed", http.StatusGone)
	case <-r.Context().Done():
		// The local MCP client went away mid-exchange; report the
		// connection gone so the chain side can clean up.
		b.RemoteClosed(conn.id)
		sink.ConnectionClosed(conn.id)
	}
}

// Addr returns the bound listener address, or empty before Start.
func (b *HTTPBridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}
