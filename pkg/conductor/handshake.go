package conductor

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

// handleInitialize performs the one-shot handshake: instantiate the chain,
// connect every component left to right, then forward the initialize request
// with the proxy capability marker injected. Success moves the conductor to
// running before the forward so responses flowing back are routable.
func (c *Conductor) handleInitialize(ctx context.Context, req *protocol.RequestDispatch) {
	if !c.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		req.Responder.Fail(errors.ToProtocolError(errors.DuplicateInitialize()))
		return
	}

	ctx, span := c.tracer.Start(ctx, "conductor.handshake")
	defer span.End()
	start := time.Now()

	hreq, err := protocol.NewRequest(req.OriginalID, req.Method, req.Params)
	if err != nil {
		c.abortHandshake(span, req, errors.InstantiationFailed(err))
		return
	}

	proxyConnectors, agentConnector, err := c.instantiator.Instantiate(ctx, hreq)
	if err != nil {
		c.abortHandshake(span, req, errors.InstantiationFailed(err))
		return
	}

	for i, connector := range proxyConnectors {
		conn, err := connector.Connect(ctx)
		if err != nil {
			c.abortHandshake(span, req, errors.ConnectionFailed(componentName(SourceProxy(i)), err))
			return
		}
		c.addProxy(conn)
		c.startPump(conn, SourceProxy(i))
	}

	agentConn, err := agentConnector.Connect(ctx)
	if err != nil {
		c.abortHandshake(span, req, errors.ConnectionFailed("agent", err))
		return
	}
	c.setAgent(agentConn)
	c.startPump(agentConn, SourceAgent())

	c.state.Store(int32(StateRunning))
	c.logger.Info("chain connected",
		logging.Int("proxies", len(proxyConnectors)),
		logging.String("method", req.Method))

	observe := func() {
		if c.metrics != nil {
			c.metrics.HandshakeDuration.Observe(time.Since(start).Seconds())
		}
	}

	if len(c.proxies) == 0 {
		// No proxies to negotiate with; the agent sees the request as-is.
		c.forward(ctx, c.agent, "agent", &protocol.RequestDispatch{
			Method:     req.Method,
			Params:     req.Params,
			OriginalID: req.OriginalID,
			Responder: &protocol.ResponderFuncs{
				OnSucceed: func(result json.RawMessage) {
					c.mcpTransport = protocol.MCPTransportSupported(result)
					observe()
					req.Responder.Succeed(result)
				},
				OnFail: func(rpcErr *protocol.Error) {
					c.logger.Warn("agent rejected handshake",
						logging.Int("code", int(rpcErr.Code)))
					c.rollbackChain()
					observe()
					req.Responder.Fail(rpcErr)
				},
			},
		})
		return
	}

	params, err := protocol.InjectProxyMeta(req.Params)
	if err != nil {
		c.abortHandshake(span, req, errors.InstantiationFailed(err))
		return
	}
	c.forward(ctx, c.proxies[0], componentName(SourceProxy(0)), &protocol.RequestDispatch{
		Method:     req.Method,
		Params:     params,
		OriginalID: req.OriginalID,
		Responder:  c.handshakeResponder(req, observe),
	})
}

// handshakeResponder verifies the echoed proxy capability and records the
// chain's transport capability before completing the original request.
func (c *Conductor) handshakeResponder(req *protocol.RequestDispatch, observe func()) protocol.Responder {
	return &protocol.ResponderFuncs{
		OnSucceed: func(result json.RawMessage) {
			if !protocol.ProxyMetaAccepted(result) {
				c.logger.Error("proxy capability not echoed in handshake result")
				c.rollbackChain()
				observe()
				req.Responder.Fail(errors.ToProtocolError(errors.ProxyCapabilityRejected()))
				return
			}
			c.mcpTransport = protocol.MCPTransportSupported(result)
			c.logger.Info("handshake complete",
				logging.Bool("mcp_transport", c.mcpTransport))
			observe()
			req.Responder.Succeed(result)
		},
		OnFail: func(rpcErr *protocol.Error) {
			c.logger.Warn("handshake rejected downstream",
				logging.Int("code", int(rpcErr.Code)))
			c.rollbackChain()
			observe()
			req.Responder.Fail(rpcErr)
		},
	}
}

// abortHandshake tears down whatever part of the chain was already connected
// and fails the request. The rollback returns the conductor to uninitialized
// with no chain connections left, so a retried initialize instantiates from
// scratch.
func (c *Conductor) abortHandshake(span trace.Span, req *protocol.RequestDispatch, err error) {
	c.logger.Error("handshake aborted", logging.Err(err))
	span.SetStatus(codes.Error, err.Error())
	c.rollbackChain()
	req.Responder.Fail(errors.ToProtocolError(err))
}
