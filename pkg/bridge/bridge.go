// Package bridge surfaces MCP servers to an agent that cannot reach them
// directly. Each registered server URL is replaced by a local listener
// address keyed by a fresh session key; traffic accepted there is relayed
// through the conductor chain as reserved _mcp/* messages toward whichever
// component owns the real URL.
package bridge

import (
	"context"
	"encoding/json"
)

// EventSink receives the bridge's transport-side events. The conductor
// implements it by pushing queue events, so all handling stays on the
// single-consumer event loop.
type EventSink interface {
	// ConnectionReceived reports a new inbound connection for the server
	// registered at url.
	ConnectionReceived(connID, url string)

	// ConnectionEstablished acknowledges that a connection is fully up.
	ConnectionEstablished(connID string)

	// MessageReceived carries one client-to-server payload.
	MessageReceived(connID string, payload json.RawMessage)

	// ConnectionClosed reports that a connection went away.
	ConnectionClosed(connID string)
}

// Bridge is the surface the conductor drives. Session registration happens
// while a session-creation request is intercepted; the remaining methods
// relay connection outcomes and server-to-client traffic back to the
// bridge's transport side.
type Bridge interface {
	// RegisterServer reserves a local listener address for url under
	// sessionKey and returns that address. The session stays pending until
	// CompleteSession or CancelSession.
	RegisterServer(ctx context.Context, sessionKey, url string) (string, error)

	// CompleteSession binds a pending session to the session id the agent
	// returned.
	CompleteSession(sessionKey, sessionID string)

	// CancelSession discards a pending session after a failed
	// session-creation request.
	CancelSession(sessionKey string)

	// ConnectionAccepted resolves the connect round-trip for connID.
	ConnectionAccepted(connID string)

	// ConnectionRejected fails the connect round-trip for connID.
	ConnectionRejected(connID string, reason error)

	// Deliver hands a server-to-client payload back to the bridged
	// connection.
	Deliver(connID string, payload json.RawMessage)

	// RemoteClosed tears down a bridged connection the chain side closed.
	RemoteClosed(connID string)

	// Close stops the listener and drops all sessions and connections.
	Close(ctx context.Context) error
}
