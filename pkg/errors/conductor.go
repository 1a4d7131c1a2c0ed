package errors

import (
	"fmt"

	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

// Lifecycle errors

// InvalidState creates an error for an operation attempted in the wrong
// conductor state.
func InvalidState(operation, state string) ConductorError {
	return Newf(CodeInvalidState, CategoryInternal,
		"cannot %s while %s", operation, state)
}

// AlreadyStarted creates an error for a second Connect call.
func AlreadyStarted() ConductorError {
	return New(CodeAlreadyStarted, "conductor already connected to a client", CategoryInternal)
}

// DuplicateInitialize creates the protocol error sent to a caller that
// initializes an already-initialized chain.
func DuplicateInitialize() ConductorError {
	return New(CodeInvalidRequest, "initialize already received", CategoryProtocol)
}

// ProxyCapabilityRejected creates the protocol error for a proxy handshake
// response that did not echo the proxy capability marker.
func ProxyCapabilityRejected() ConductorError {
	return New(CodeInvalidRequest, "proxy capability not accepted", CategoryHandshake)
}

// InstantiationFailed wraps a component-creation or connection failure during
// the handshake.
func InstantiationFailed(err error) ConductorError {
	return Wrap(err, CodeHandshakeFailed, "failed to instantiate chain components", CategoryHandshake)
}

// ShutdownFailed wraps connection-close failures observed during shutdown.
func ShutdownFailed(err error) ConductorError {
	return Wrap(err, CodeShutdownFailed, "shutdown did not complete cleanly", CategoryInternal)
}

// Routing errors

// UnroutableTarget creates an error for a left-to-right target outside the
// chain.
func UnroutableTarget(target, chainLength int) ConductorError {
	return Newf(CodeInternalError, CategoryRouting,
		"no component at chain position %d (chain has %d proxies)", target, chainLength)
}

// InvalidEnvelope wraps a malformed _proxy/* payload.
func InvalidEnvelope(err error) ConductorError {
	return Wrap(err, CodeInvalidParams, "malformed wrap envelope", CategoryProtocol)
}

// Transport errors

// ConnectionFailed wraps a connect failure for a named component.
func ConnectionFailed(component string, err error) ConductorError {
	return Wrap(err, CodeConnectionFailed,
		fmt.Sprintf("failed to connect %s", component), CategoryTransport)
}

// ConnectionClosed creates an error for operations on a closed connection.
func ConnectionClosed(component string) ConductorError {
	return Newf(CodeConnectionClosed, CategoryTransport, "%s connection is closed", component)
}

// SendFailed wraps a write failure on a live connection.
func SendFailed(component string, err error) ConductorError {
	return Wrap(err, CodeSendFailed,
		fmt.Sprintf("failed to send on %s connection", component), CategoryTransport)
}

// Bridge errors

// BridgeSessionNotFound creates an error for an unknown bridge session key.
func BridgeSessionNotFound(key string) ConductorError {
	return Newf(CodeBridgeSessionNotFound, CategoryBridge, "no pending bridge session %q", key)
}

// BridgeConnectionNotFound creates an error for an unknown bridged
// connection id.
func BridgeConnectionNotFound(id string) ConductorError {
	return Newf(CodeBridgeConnectionNotFound, CategoryBridge, "no bridged connection %q", id)
}

// BridgeClosed creates an error for operations on a stopped bridge.
func BridgeClosed() ConductorError {
	return New(CodeBridgeClosed, "bridge is closed", CategoryBridge)
}

// ToProtocolError converts any error into a wire-level *protocol.Error.
// ConductorErrors in the JSON-RPC reserved range keep their code; everything
// else becomes an internal error, per the protocol's error taxonomy.
func ToProtocolError(err error) *protocol.Error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*protocol.Error); ok {
		return pe
	}
	if ce, ok := As(err); ok {
		code := ce.Code()
		if code <= -32600 && code >= -32700 {
			return &protocol.Error{Code: protocol.ErrorCode(code), Message: ce.Message()}
		}
		return &protocol.Error{Code: protocol.InternalError, Message: ce.Error()}
	}
	return &protocol.Error{Code: protocol.InternalError, Message: err.Error()}
}
