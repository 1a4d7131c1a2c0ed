/*
Package acp implements a conductor for the Agent Client Protocol: a routing
engine that sits between a client and an AI agent and threads every message
through an ordered chain of proxies.

# Architecture

The conductor owns one connection per chain component. Every inbound message
becomes an item on a single FIFO queue consumed by one event loop, so
handlers never run concurrently and messages from the same connection are
always handled in arrival order.

Messages flowing toward the agent enter at the chain's left end; messages
flowing back toward the client unwind one hop at a time, wrapped in the
_proxy/request and _proxy/notification sub-protocol whenever the next hop is
a proxy. Requests forwarded on either path get a fresh conductor-generated
id; a pending table maps it back to the originator when the response
arrives.

# Getting started

Build an instantiator describing the chain, then connect the client:

	chain := transport.Static(
		[]transport.Connector{proxyConnector},
		agentConnector,
	)
	c := conductor.New(chain, conductor.WithLogger(logger))
	err := c.Connect(ctx, clientConnector)

Connect blocks until the conductor shuts down. The chain itself is only
instantiated when the client sends its initialize request; the conductor
injects the proxy capability marker, verifies the chain echoes it back, and
records whether the chain handles MCP traffic natively.

# MCP bridge

Agents without native MCP transport support can be assisted by an HTTP
bridge. When enabled, the conductor rewrites the server URLs inside a
session/new request to a local listener and relays the traffic over the
chain as _mcp/connect, _mcp/message, and _mcp/disconnect exchanges.

See the examples directory for complete programs.
*/
package acp
