package protocol

import "encoding/json"

// Reserved methods understood by the conductor itself. A true client and the
// terminal agent never see the _proxy/* pair: it exists so a proxy, which
// only ever holds a connection to the conductor, can address its logical
// successor. The _mcp/* trio carries bridged MCP traffic through the chain.
const (
	// MethodInitialize starts the capability-negotiation handshake.
	MethodInitialize = "initialize"
	// MethodInitializeACP is the namespaced alias of MethodInitialize.
	MethodInitializeACP = "acp/initialize"

	// MethodProxyRequest wraps a request a proxy wants relayed to its
	// successor.
	MethodProxyRequest = "_proxy/request"
	// MethodProxyNotification wraps a notification a proxy wants relayed to
	// its successor.
	MethodProxyNotification = "_proxy/notification"

	// MethodMCPConnect asks the component owning a bridged server URL to open
	// a connection to it.
	MethodMCPConnect = "_mcp/connect"
	// MethodMCPMessage carries one bridged MCP payload in either direction.
	MethodMCPMessage = "_mcp/message"
	// MethodMCPDisconnect announces that a bridged connection is gone.
	MethodMCPDisconnect = "_mcp/disconnect"
)

// IsInitialize reports whether method starts the handshake.
func IsInitialize(method string) bool {
	return method == MethodInitialize || method == MethodInitializeACP
}

// Envelope is the payload of the two _proxy/* wrap methods: the inner message
// a proxy wants relayed to its successor.
type Envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// MCPConnectParams is the payload of MethodMCPConnect.
type MCPConnectParams struct {
	ConnectionID string `json:"connectionId"`
	URL          string `json:"url"`
}

// MCPMessageParams is the payload of MethodMCPMessage.
type MCPMessageParams struct {
	ConnectionID string          `json:"connectionId"`
	Payload      json.RawMessage `json:"payload"`
}

// MCPDisconnectParams is the payload of MethodMCPDisconnect.
type MCPDisconnectParams struct {
	ConnectionID string `json:"connectionId"`
}
