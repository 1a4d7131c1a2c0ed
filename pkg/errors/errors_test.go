package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

func TestNewAndAccessors(t *testing.T) {
	err := New(CodeInvalidState, "bad state", CategoryRouting)
	assert.Equal(t, CodeInvalidState, err.Code())
	assert.Equal(t, "bad state", err.Message())
	assert.Equal(t, CategoryRouting, err.Category())
	assert.Contains(t, err.Error(), "bad state")
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial refused")
	err := Wrap(cause, CodeConnectionFailed, "connect failed", CategoryTransport)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial refused")
}

func TestWithDetail(t *testing.T) {
	err := New(CodeSendFailed, "send failed", CategoryTransport).WithDetail("proxy[1]")
	assert.Contains(t, err.Details(), "proxy[1]")
}

func TestIsCodeAndCategory(t *testing.T) {
	err := InvalidState("connect", "running")
	assert.True(t, IsCode(err, CodeInvalidState))
	assert.False(t, IsCode(err, CodeSendFailed))
	assert.True(t, IsCategory(err, CategoryInternal))
	assert.False(t, IsCode(fmt.Errorf("plain"), CodeInvalidState))
}

func TestToProtocolErrorPassthrough(t *testing.T) {
	pe := &protocol.Error{Code: protocol.MethodNotFound, Message: "nope"}
	assert.Same(t, pe, ToProtocolError(pe))
	assert.Nil(t, ToProtocolError(nil))
}

func TestToProtocolErrorWireRange(t *testing.T) {
	// Codes inside the reserved wire range survive the conversion.
	out := ToProtocolError(DuplicateInitialize())
	require.NotNil(t, out)
	assert.Equal(t, protocol.InvalidRequest, out.Code)

	// API-level codes collapse to internal error on the wire.
	out = ToProtocolError(ConnectionClosed("agent"))
	require.NotNil(t, out)
	assert.Equal(t, protocol.InternalError, out.Code)

	out = ToProtocolError(fmt.Errorf("some plain failure"))
	require.NotNil(t, out)
	assert.Equal(t, protocol.InternalError, out.Code)
}

func TestConstructors(t *testing.T) {
	assert.True(t, IsCode(AlreadyStarted(), CodeAlreadyStarted))
	assert.True(t, IsCode(UnroutableTarget(5, 2), CodeInternalError))
	assert.True(t, IsCode(BridgeSessionNotFound("k"), CodeBridgeSessionNotFound))
	assert.True(t, IsCategory(SendFailed("client", fmt.Errorf("x")), CategoryTransport))
	assert.True(t, IsCategory(BridgeClosed(), CategoryBridge))
}
