package conductor

import (
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

// SourceIndex identifies a logical chain position: the client, proxy i, or
// the terminal agent. Routing and wrap/unwrap decisions key off it; the
// ordering it refers to is fixed at initialization and never changes.
type SourceIndex struct {
	kind  sourceKind
	index int
}

type sourceKind int

const (
	sourceClient sourceKind = iota
	sourceProxy
	sourceAgent
)

// SourceClient returns the client position.
func SourceClient() SourceIndex { return SourceIndex{kind: sourceClient} }

// SourceProxy returns the position of proxy i.
func SourceProxy(i int) SourceIndex { return SourceIndex{kind: sourceProxy, index: i} }

// SourceAgent returns the agent position at the chain's successor end.
func SourceAgent() SourceIndex { return SourceIndex{kind: sourceAgent} }

// IsClient reports whether this is the client position.
func (s SourceIndex) IsClient() bool { return s.kind == sourceClient }

// IsAgent reports whether this is the agent position.
func (s SourceIndex) IsAgent() bool { return s.kind == sourceAgent }

// ProxyIndex returns the proxy position, if this is one.
func (s SourceIndex) ProxyIndex() (int, bool) {
	return s.index, s.kind == sourceProxy
}

// String returns a printable chain position.
func (s SourceIndex) String() string {
	switch s.kind {
	case sourceClient:
		return "client"
	case sourceAgent:
		return "agent"
	default:
		return fmt.Sprintf("proxy[%d]", s.index)
	}
}

// conductorMessage is the queue payload: one unit of work for the event
// loop.
type conductorMessage interface {
	conductorMessage()
}

// leftToRight carries a dispatch flowing toward the agent. Targets 0..n-1
// address a proxy, target n the agent.
type leftToRight struct {
	target   int
	dispatch protocol.Dispatch
}

func (leftToRight) conductorMessage() {}

// rightToLeft carries a dispatch flowing toward the client, tagged with the
// position it came from.
type rightToLeft struct {
	source   SourceIndex
	dispatch protocol.Dispatch
}

func (rightToLeft) conductorMessage() {}

// shutdownRequested asks the loop to shut the chain down. Pumps push it on
// stream end so that messages queued before the stream ended drain first.
type shutdownRequested struct{}

func (shutdownRequested) conductorMessage() {}

// Bridge transport events, pushed by the MCP bridge's listener side.

// bridgeConnReceived reports a new inbound connection on a bridged listener.
type bridgeConnReceived struct {
	connID string
	url    string
}

func (bridgeConnReceived) conductorMessage() {}

// bridgeConnEstablished acknowledges that a bridged connection is up.
type bridgeConnEstablished struct {
	connID string
}

func (bridgeConnEstablished) conductorMessage() {}

// bridgeClientToServer carries one client-to-server payload from a bridged
// connection.
type bridgeClientToServer struct {
	connID  string
	payload json.RawMessage
}

func (bridgeClientToServer) conductorMessage() {}

// bridgeConnClosed reports that a bridged connection went away.
type bridgeConnClosed struct {
	connID string
}

func (bridgeConnClosed) conductorMessage() {}
