package conductor

import (
	"context"
	"encoding/json"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
	"github.com/ajitpratap0/acp-conductor-go/pkg/transport"
)

// startPump starts the reader goroutine for a connection. Pumps convert wire
// messages into queue items; because each pump pushes in receive order and
// the queue appends atomically, per-connection FIFO survives end to end.
// Chain pumps carry the handshake generation that created them; the client
// pump outlives every chain attempt and carries the -1 sentinel.
func (c *Conductor) startPump(conn transport.Connection, source SourceIndex) {
	gen := int64(-1)
	if !source.IsClient() {
		gen = c.chainGen.Load()
	}
	go c.pump(conn, source, gen)
}

func (c *Conductor) pump(conn transport.Connection, source SourceIndex, gen int64) {
	for msg := range conn.Incoming() {
		if gen >= 0 && c.chainGen.Load() != gen {
			// Connection belongs to a rolled-back handshake attempt; drain
			// without dispatching until the close lands.
			continue
		}
		c.dispatchInbound(conn, source, msg)
	}
	if gen >= 0 && c.chainGen.Load() != gen {
		c.logger.Debug("abandoned connection stream ended", logging.String("source", source.String()))
		return
	}
	// Stream ended. Only the shutdown marker goes on the queue so messages
	// already enqueued are still handled first.
	c.logger.Debug("connection stream ended", logging.String("source", source.String()))
	c.queue.Push(shutdownRequested{})
}

// dispatchInbound classifies one wire message from a connection and pushes
// the matching queue item. Wrapped sub-protocol traffic from proxies is
// unwrapped here, before queuing, so the event loop only ever sees plain
// dispatches with an explicit target or source.
func (c *Conductor) dispatchInbound(conn transport.Connection, source SourceIndex, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Response:
		c.queue.Push(rightToLeft{source: source, dispatch: &protocol.ResponseDispatch{
			ID:     m.ID,
			Result: m.Result,
			Error:  m.Error,
		}})

	case *protocol.Request:
		if i, ok := source.ProxyIndex(); ok && m.Method == protocol.MethodProxyRequest {
			c.unwrapRequest(conn, i, m)
			return
		}
		d := &protocol.RequestDispatch{
			Method:     m.Method,
			Params:     m.Params,
			Responder:  connectionResponder(conn, m.ID, c.logger),
			OriginalID: m.ID,
		}
		if source.IsClient() {
			c.queue.Push(leftToRight{target: 0, dispatch: d})
			return
		}
		c.queue.Push(rightToLeft{source: source, dispatch: d})

	case *protocol.Notification:
		if i, ok := source.ProxyIndex(); ok && m.Method == protocol.MethodProxyNotification {
			c.unwrapNotification(i, m)
			return
		}
		if source.IsClient() && c.bridge != nil {
			if c.interceptBridgeNotification(m) {
				return
			}
		}
		d := &protocol.NotificationDispatch{Method: m.Method, Params: m.Params}
		if source.IsClient() {
			c.queue.Push(leftToRight{target: 0, dispatch: d})
			return
		}
		c.queue.Push(rightToLeft{source: source, dispatch: d})
	}
}

// interceptBridgeNotification handles client-issued bridge traffic without a
// trip through the event loop; the bridge carries its own synchronization.
// Returns true when the notification was consumed.
func (c *Conductor) interceptBridgeNotification(m *protocol.Notification) bool {
	switch m.Method {
	case protocol.MethodMCPMessage:
		var p protocol.MCPMessageParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			c.logger.Warn("malformed bridge message params", logging.Err(err))
			return true
		}
		c.bridge.Deliver(p.ConnectionID, p.Payload)
		return true
	case protocol.MethodMCPDisconnect:
		var p protocol.MCPDisconnectParams
		if err := json.Unmarshal(m.Params, &p); err != nil {
			c.logger.Warn("malformed bridge disconnect params", logging.Err(err))
			return true
		}
		c.bridge.RemoteClosed(p.ConnectionID)
		return true
	}
	return false
}

// unwrapRequest handles a _proxy/request from proxy i. The envelope's method
// and params become a fresh dispatch targeted one position to the right; the
// responder re-wraps the eventual outcome as a plain response carrying the
// wrapping request's id back to the same proxy.
func (c *Conductor) unwrapRequest(conn transport.Connection, i int, m *protocol.Request) {
	var env protocol.Envelope
	if err := json.Unmarshal(m.Params, &env); err != nil || env.Method == "" {
		wrapped := errors.InvalidEnvelope(err)
		c.logger.Warn("malformed proxy envelope",
			logging.Int("proxy", i), logging.Err(wrapped))
		resp := protocol.NewErrorResponse(m.ID, errors.ToProtocolError(wrapped))
		if serr := conn.Send(context.Background(), resp); serr != nil {
			c.logger.Warn("failed to reject malformed envelope", logging.Err(serr))
		}
		return
	}
	c.queue.Push(leftToRight{target: i + 1, dispatch: &protocol.RequestDispatch{
		Method:     env.Method,
		Params:     env.Params,
		Responder:  connectionResponder(conn, m.ID, c.logger),
		OriginalID: m.ID,
	}})
}

func (c *Conductor) unwrapNotification(i int, m *protocol.Notification) {
	var env protocol.Envelope
	if err := json.Unmarshal(m.Params, &env); err != nil || env.Method == "" {
		c.logger.Warn("dropping malformed proxy notification envelope",
			logging.Int("proxy", i), logging.Err(err))
		return
	}
	c.queue.Push(leftToRight{target: i + 1, dispatch: &protocol.NotificationDispatch{
		Method: env.Method,
		Params: env.Params,
	}})
}

// connectionResponder builds a Responder that writes the outcome back to the
// originating connection as a response with the original id.
func connectionResponder(conn transport.Connection, id interface{}, logger logging.Logger) protocol.Responder {
	return &protocol.ResponderFuncs{
		OnSucceed: func(result json.RawMessage) {
			if result == nil {
				result = json.RawMessage("null")
			}
			resp, err := protocol.NewResponse(id, result)
			if err != nil {
				logger.Error("failed to build response", logging.Err(err))
				return
			}
			if err := conn.Send(context.Background(), resp); err != nil {
				logger.Warn("failed to deliver response", logging.Err(err))
			}
		},
		OnFail: func(rpcErr *protocol.Error) {
			resp := protocol.NewErrorResponse(id, rpcErr)
			if err := conn.Send(context.Background(), resp); err != nil {
				logger.Warn("failed to deliver error response", logging.Err(err))
			}
		},
	}
}
