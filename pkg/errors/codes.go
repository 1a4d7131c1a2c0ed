package errors

// JSON-RPC 2.0 standard error codes. These map to the protocol package's
// error codes; protocol violations reported to a peer always use this
// reserved range.
const (
	// CodeParseError indicates invalid JSON was received.
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the message is not a valid request, or a
	// request arrived that the conductor's state machine cannot accept (for
	// example a duplicate initialize).
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist.
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameters.
	CodeInvalidParams int = -32602

	// CodeInternalError indicates an internal error: an unresolvable routing
	// target, instantiation failure, or a broken connection mid-forward.
	CodeInternalError int = -32603
)

// Conductor-specific error codes, used on the error values the Go API
// returns. They never reach the wire; wire responses stick to the reserved
// range above.
const (
	// Lifecycle errors (-32000 to -32009)
	CodeInvalidState    int = -32000 // Operation not allowed in the current state
	CodeAlreadyStarted  int = -32001 // Conductor already owns a client connection
	CodeShutdownFailed  int = -32002 // One or more connections failed to close
	CodeHandshakeFailed int = -32003 // Component instantiation or connection failed

	// Transport errors (-32010 to -32019)
	CodeConnectionFailed int = -32010 // Failed to establish a connection
	CodeConnectionClosed int = -32011 // Connection closed while in use
	CodeSendFailed       int = -32012 // Write to a connection failed

	// Bridge errors (-32020 to -32029)
	CodeBridgeSessionNotFound    int = -32020 // No pending session for key
	CodeBridgeConnectionNotFound int = -32021 // No live bridged connection for id
	CodeBridgeClosed             int = -32022 // Bridge already shut down
)
