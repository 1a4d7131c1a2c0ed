package conductor

import (
	"context"
	"encoding/json"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
	"github.com/ajitpratap0/acp-conductor-go/pkg/transport"
)

// handleLeftToRight routes a dispatch toward the agent. Target n (one past
// the last proxy) is the agent itself; anything beyond is unroutable and
// rejected rather than silently dropped.
func (c *Conductor) handleLeftToRight(ctx context.Context, ev leftToRight) {
	if req, ok := ev.dispatch.(*protocol.RequestDispatch); ok && protocol.IsInitialize(req.Method) {
		c.handleInitialize(ctx, req)
		return
	}

	n := len(c.proxies)
	switch {
	case ev.target < n:
		c.forward(ctx, c.proxies[ev.target], componentName(SourceProxy(ev.target)), ev.dispatch)
	case ev.target == n && c.agent != nil:
		if req, ok := ev.dispatch.(*protocol.RequestDispatch); ok && c.interceptSessionNew(ctx, req) {
			return
		}
		c.forward(ctx, c.agent, "agent", ev.dispatch)
	default:
		c.rejectDispatch(ev.dispatch, errors.UnroutableTarget(ev.target, n))
	}
}

// handleRightToLeft routes a dispatch toward the client. Responses are
// correlated here regardless of source; requests and notifications step one
// position left, wrapped when the next hop is a proxy.
func (c *Conductor) handleRightToLeft(ctx context.Context, ev rightToLeft) {
	if resp, ok := ev.dispatch.(*protocol.ResponseDispatch); ok {
		c.correlate(resp)
		return
	}

	if ev.source.IsClient() {
		c.logger.Warn("dropping client-sourced dispatch on right-to-left path")
		return
	}

	n := len(c.proxies)
	if ev.source.IsAgent() {
		if n == 0 {
			c.forward(ctx, c.client, "client", ev.dispatch)
			return
		}
		c.wrapToProxy(ctx, n-1, ev.dispatch)
		return
	}

	i, _ := ev.source.ProxyIndex()
	if i == 0 {
		c.forward(ctx, c.client, "client", ev.dispatch)
		return
	}
	c.wrapToProxy(ctx, i-1, ev.dispatch)
}

// forward sends a dispatch to a connection as a plain wire message. Requests
// get a fresh conductor-generated id with the pending entry registered
// before the send.
func (c *Conductor) forward(ctx context.Context, conn transport.Connection, component string, d protocol.Dispatch) {
	switch dd := d.(type) {
	case *protocol.RequestDispatch:
		// Forwarded requests are recorded as client-sourced regardless of
		// where the dispatch entered the chain.
		id, key := c.registerPending(dd, SourceClient())
		req, err := protocol.NewRequest(id, dd.Method, dd.Params)
		if err != nil {
			c.dropPending(key)
			c.rejectDispatch(d, err)
			return
		}
		if err := conn.Send(ctx, req); err != nil {
			c.dropPending(key)
			c.rejectDispatch(d, errors.SendFailed(component, err))
		}
	case *protocol.NotificationDispatch:
		note, err := protocol.NewNotification(dd.Method, dd.Params)
		if err != nil {
			c.logger.Warn("failed to build notification", logging.Err(err))
			return
		}
		if err := conn.Send(ctx, note); err != nil {
			c.logger.Warn("failed to deliver notification",
				logging.String("component", component), logging.Err(err))
		}
	}
}

// wrapToProxy delivers a dispatch to proxy i through the wrap sub-protocol:
// the dispatch's method and params travel inside an envelope under the
// wrapping method, and for requests the pending entry tracks the wrapping
// id so the response unwinds to the true originator.
func (c *Conductor) wrapToProxy(ctx context.Context, i int, d protocol.Dispatch) {
	conn := c.proxies[i]
	component := componentName(SourceProxy(i))

	switch dd := d.(type) {
	case *protocol.RequestDispatch:
		env, err := json.Marshal(protocol.Envelope{Method: dd.Method, Params: dd.Params})
		if err != nil {
			c.rejectDispatch(d, err)
			return
		}
		id, key := c.registerPending(dd, SourceProxy(i))
		req, err := protocol.NewRequest(id, protocol.MethodProxyRequest, env)
		if err != nil {
			c.dropPending(key)
			c.rejectDispatch(d, err)
			return
		}
		if err := conn.Send(ctx, req); err != nil {
			c.dropPending(key)
			c.rejectDispatch(d, errors.SendFailed(component, err))
		}
	case *protocol.NotificationDispatch:
		env, err := json.Marshal(protocol.Envelope{Method: dd.Method, Params: dd.Params})
		if err != nil {
			c.logger.Warn("failed to build notification envelope", logging.Err(err))
			return
		}
		note, err := protocol.NewNotification(protocol.MethodProxyNotification, env)
		if err != nil {
			c.logger.Warn("failed to build wrapped notification", logging.Err(err))
			return
		}
		if err := conn.Send(ctx, note); err != nil {
			c.logger.Warn("failed to deliver wrapped notification",
				logging.String("component", component), logging.Err(err))
		}
	}
}

// rejectDispatch fails a request dispatch with a protocol error; failures on
// notification dispatches have no reply channel and are only logged.
func (c *Conductor) rejectDispatch(d protocol.Dispatch, err error) {
	c.logger.Warn("rejecting dispatch", logging.Err(err))
	if req, ok := d.(*protocol.RequestDispatch); ok {
		req.Responder.Fail(errors.ToProtocolError(err))
	}
}

func componentName(s SourceIndex) string {
	return s.String()
}
