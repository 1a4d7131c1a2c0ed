package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectProxyMeta(t *testing.T) {
	out, err := InjectProxyMeta(json.RawMessage(`{"protocolVersion":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"protocolVersion":1,"_meta":{"proxy":true}}`, string(out))
}

func TestInjectProxyMetaNilParams(t *testing.T) {
	out, err := InjectProxyMeta(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_meta":{"proxy":true}}`, string(out))
}

func TestInjectProxyMetaPreservesExistingMeta(t *testing.T) {
	out, err := InjectProxyMeta(json.RawMessage(`{"_meta":{"trace":"abc"},"x":2}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"_meta":{"trace":"abc","proxy":true},"x":2}`, string(out))
}

func TestInjectProxyMetaMalformed(t *testing.T) {
	_, err := InjectProxyMeta(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestProxyMetaAccepted(t *testing.T) {
	assert.True(t, ProxyMetaAccepted(json.RawMessage(`{"_meta":{"proxy":true}}`)))
	assert.False(t, ProxyMetaAccepted(json.RawMessage(`{"_meta":{"proxy":false}}`)))
	assert.False(t, ProxyMetaAccepted(json.RawMessage(`{"_meta":{}}`)))
	assert.False(t, ProxyMetaAccepted(json.RawMessage(`{}`)))
	assert.False(t, ProxyMetaAccepted(nil))
}

func TestMCPTransportSupported(t *testing.T) {
	assert.True(t, MCPTransportSupported(json.RawMessage(`{"capabilities":{"mcp_acp_transport":true}}`)))
	assert.False(t, MCPTransportSupported(json.RawMessage(`{"capabilities":{"mcp_acp_transport":false}}`)))
	assert.False(t, MCPTransportSupported(json.RawMessage(`{"capabilities":{}}`)))
	assert.False(t, MCPTransportSupported(nil))
}

func TestIsInitialize(t *testing.T) {
	assert.True(t, IsInitialize(MethodInitialize))
	assert.True(t, IsInitialize(MethodInitializeACP))
	assert.False(t, IsInitialize("session/new"))
}
