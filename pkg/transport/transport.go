// Package transport defines the connection contracts the conductor consumes
// and the concrete transports shipped with this module: a subprocess-backed
// stdio connection, an in-memory pair for tests and embedding, and a
// websocket dialer.
package transport

import (
	"context"

	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

// Connection is one bidirectional protocol stream to a chain component. The
// conductor owns every connection exclusively from connect to shutdown;
// there is exactly one connection per client, proxy and agent.
type Connection interface {
	// Send writes one message to the peer.
	Send(ctx context.Context, msg protocol.Message) error

	// Incoming returns the inbound message sequence. The channel is closed
	// once the stream ends, whether cleanly or on a read error.
	Incoming() <-chan protocol.Message

	// Close tears the connection down. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Connector asynchronously yields a connection to a chain component.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Connection, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (Connection, error) {
	return f(ctx)
}

// Instantiator produces the chain components for a handshake: an ordered
// list of proxy connectors and exactly one agent connector. It is the only
// point in the system where new components are created.
type Instantiator interface {
	Instantiate(ctx context.Context, handshake *protocol.Request) (proxies []Connector, agent Connector, err error)
}

// InstantiatorFunc adapts a function to the Instantiator interface.
type InstantiatorFunc func(ctx context.Context, handshake *protocol.Request) ([]Connector, Connector, error)

// Instantiate implements Instantiator.
func (f InstantiatorFunc) Instantiate(ctx context.Context, handshake *protocol.Request) ([]Connector, Connector, error) {
	return f(ctx, handshake)
}

// Static returns an Instantiator that always yields the given connectors,
// ignoring the handshake request.
func Static(proxies []Connector, agent Connector) Instantiator {
	return InstantiatorFunc(func(context.Context, *protocol.Request) ([]Connector, Connector, error) {
		return proxies, agent, nil
	})
}
