package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

const (
	wsHandshakeTimeout = 45 * time.Second
	wsWriteTimeout     = 30 * time.Second
	wsMaxMessageSize   = 10 * 1024 * 1024
)

// WebSocketConnector dials a component reachable over a websocket endpoint.
type WebSocketConnector struct {
	// URL is the ws:// or wss:// endpoint to dial.
	URL string
	// Logger receives framing diagnostics. Nil means no logging.
	Logger logging.Logger
}

// Connect implements Connector.
func (c *WebSocketConnector) Connect(ctx context.Context) (Connection, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	wsConn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, errors.ConnectionFailed(c.URL, err)
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return NewWebSocketConnection(wsConn, logger), nil
}

// WebSocketConnection is a Connection over an established websocket. One
// protocol message travels per text frame.
type WebSocketConnection struct {
	conn     *websocket.Conn
	incoming chan protocol.Message
	logger   logging.Logger

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
}

// NewWebSocketConnection wraps an established websocket, starting its read
// loop. Used directly by servers that accepted the upgrade themselves.
func NewWebSocketConnection(conn *websocket.Conn, logger logging.Logger) *WebSocketConnection {
	conn.SetReadLimit(wsMaxMessageSize)
	c := &WebSocketConnection{
		conn:     conn,
		incoming: make(chan protocol.Message, pipeBuffer),
		logger:   logger,
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WebSocketConnection) readLoop() {
	defer close(c.incoming)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("websocket read failed", logging.Err(err))
				}
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("discarding malformed message", logging.Err(err))
			continue
		}
		select {
		case c.incoming <- msg:
		case <-c.closed:
			return
		}
	}
}

// Send implements Connection.
func (c *WebSocketConnection) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-c.closed:
		return errors.ConnectionClosed("websocket")
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.SendFailed("websocket", err)
	}
	return nil
}

// Incoming implements Connection.
func (c *WebSocketConnection) Incoming() <-chan protocol.Message {
	return c.incoming
}

// Close implements Connection. A close frame is attempted before tearing the
// socket down.
func (c *WebSocketConnection) Close(ctx context.Context) error {
	c.once.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}
