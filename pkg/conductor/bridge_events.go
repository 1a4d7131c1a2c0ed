package conductor

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

const methodSessionNew = "session/new"

// The conductor is the bridge's event sink: each callback becomes a queue
// item so bridge traffic obeys the same serialization as everything else.

// ConnectionReceived implements bridge.EventSink.
func (c *Conductor) ConnectionReceived(connID, url string) {
	c.queue.Push(bridgeConnReceived{connID: connID, url: url})
}

// ConnectionEstablished implements bridge.EventSink.
func (c *Conductor) ConnectionEstablished(connID string) {
	c.queue.Push(bridgeConnEstablished{connID: connID})
}

// MessageReceived implements bridge.EventSink.
func (c *Conductor) MessageReceived(connID string, payload json.RawMessage) {
	c.queue.Push(bridgeClientToServer{connID: connID, payload: payload})
}

// ConnectionClosed implements bridge.EventSink.
func (c *Conductor) ConnectionClosed(connID string) {
	c.queue.Push(bridgeConnClosed{connID: connID})
}

// handleBridgeConnReceived announces a new bridged connection toward the
// client as an _mcp/connect request; the reply decides whether the bridge
// accepts or rejects the underlying HTTP exchange.
func (c *Conductor) handleBridgeConnReceived(ctx context.Context, ev bridgeConnReceived) {
	params, err := json.Marshal(protocol.MCPConnectParams{ConnectionID: ev.connID, URL: ev.url})
	if err != nil {
		c.bridge.ConnectionRejected(ev.connID, err)
		return
	}
	if c.metrics != nil {
		c.metrics.BridgeSessions.Inc()
	}
	connID := ev.connID
	c.handleRightToLeft(ctx, rightToLeft{source: SourceAgent(), dispatch: &protocol.RequestDispatch{
		Method: protocol.MethodMCPConnect,
		Params: params,
		Responder: &protocol.ResponderFuncs{
			OnSucceed: func(json.RawMessage) {
				c.bridge.ConnectionAccepted(connID)
			},
			OnFail: func(rpcErr *protocol.Error) {
				c.bridge.ConnectionRejected(connID, rpcErr)
			},
		},
	}})
}

// handleBridgeClientToServer relays an MCP payload toward the client as an
// _mcp/message notification, entering the chain from the agent position.
func (c *Conductor) handleBridgeClientToServer(ctx context.Context, ev bridgeClientToServer) {
	params, err := json.Marshal(protocol.MCPMessageParams{ConnectionID: ev.connID, Payload: ev.payload})
	if err != nil {
		c.logger.Warn("failed to encode bridge message", logging.Err(err))
		return
	}
	c.handleRightToLeft(ctx, rightToLeft{source: SourceAgent(), dispatch: &protocol.NotificationDispatch{
		Method: protocol.MethodMCPMessage,
		Params: params,
	}})
}

func (c *Conductor) handleBridgeConnClosed(ctx context.Context, ev bridgeConnClosed) {
	params, err := json.Marshal(protocol.MCPDisconnectParams{ConnectionID: ev.connID})
	if err != nil {
		c.logger.Warn("failed to encode bridge disconnect", logging.Err(err))
		return
	}
	c.handleRightToLeft(ctx, rightToLeft{source: SourceAgent(), dispatch: &protocol.NotificationDispatch{
		Method: protocol.MethodMCPDisconnect,
		Params: params,
	}})
}

// interceptSessionNew rewrites HTTP MCP server URLs in a session/new request
// to point at the bridge listener. Active only when a bridge is configured
// and the chain did not advertise native transport support. Returns true
// when the request was consumed.
func (c *Conductor) interceptSessionNew(ctx context.Context, req *protocol.RequestDispatch) bool {
	if c.bridge == nil || c.mcpTransport || req.Method != methodSessionNew {
		return false
	}

	params, keys, err := c.rewriteMCPServers(ctx, req.Params)
	if err != nil {
		c.logger.Warn("failed to rewrite mcp servers", logging.Err(err))
		c.rejectDispatch(req, err)
		return true
	}
	if len(keys) == 0 {
		return false
	}

	inner := req.Responder
	c.forward(ctx, c.agent, "agent", &protocol.RequestDispatch{
		Method:     req.Method,
		Params:     params,
		OriginalID: req.OriginalID,
		Responder:  c.sessionResponder(inner, keys),
	})
	return true
}

// rewriteMCPServers replaces the url of each http or sse server entry with a
// bridge-registered one, returning the rewritten params and the session keys
// awaiting the session id.
func (c *Conductor) rewriteMCPServers(ctx context.Context, params json.RawMessage) (json.RawMessage, []string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(params, &top); err != nil {
		return nil, nil, err
	}
	raw, ok := top["mcpServers"]
	if !ok {
		return params, nil, nil
	}
	var servers []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, nil, err
	}

	var keys []string
	for _, server := range servers {
		var typ string
		if err := json.Unmarshal(server["type"], &typ); err != nil {
			continue
		}
		if typ != "http" && typ != "sse" {
			continue
		}
		var url string
		if err := json.Unmarshal(server["url"], &url); err != nil {
			continue
		}
		key := uuid.NewString()
		rewritten, err := c.bridge.RegisterServer(ctx, key, url)
		if err != nil {
			for _, k := range keys {
				c.bridge.CancelSession(k)
			}
			return nil, nil, errors.Wrap(err, errors.CodeBridgeClosed, "bridge registration failed", errors.CategoryBridge)
		}
		encoded, err := json.Marshal(rewritten)
		if err != nil {
			return nil, nil, err
		}
		server["url"] = encoded
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return params, nil, nil
	}

	encoded, err := json.Marshal(servers)
	if err != nil {
		return nil, nil, err
	}
	top["mcpServers"] = encoded
	out, err := json.Marshal(top)
	if err != nil {
		return nil, nil, err
	}
	return out, keys, nil
}

// sessionResponder binds registered session keys to the session id from a
// successful session/new result, or cancels them on failure.
func (c *Conductor) sessionResponder(inner protocol.Responder, keys []string) protocol.Responder {
	return &protocol.ResponderFuncs{
		OnSucceed: func(result json.RawMessage) {
			var body struct {
				SessionID string `json:"sessionId"`
			}
			if err := json.Unmarshal(result, &body); err != nil || body.SessionID == "" {
				c.logger.Warn("session result missing session id; cancelling bridge sessions")
				for _, k := range keys {
					c.bridge.CancelSession(k)
				}
				inner.Succeed(result)
				return
			}
			for _, k := range keys {
				c.bridge.CompleteSession(k, body.SessionID)
			}
			inner.Succeed(result)
		},
		OnFail: func(rpcErr *protocol.Error) {
			for _, k := range keys {
				c.bridge.CancelSession(k)
			}
			inner.Fail(rpcErr)
		},
	}
}
