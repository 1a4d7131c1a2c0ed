package protocol

import (
	"encoding/json"
	"fmt"
)

// Handshake payloads are open key-value bags; only the two negotiated
// extension fields the conductor actually reads get typed accessors.
const (
	metaKey         = "_meta"
	proxyKey        = "proxy"
	capabilitiesKey = "capabilities"
	mcpTransportKey = "mcp_acp_transport"
)

// InjectProxyMeta returns params with `_meta.proxy: true` set, preserving
// every other field. Nil params become a bare {"_meta":{"proxy":true}}
// object.
func InjectProxyMeta(params json.RawMessage) (json.RawMessage, error) {
	bag := map[string]json.RawMessage{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &bag); err != nil {
			return nil, fmt.Errorf("params is not an object: %w", err)
		}
	}

	meta := map[string]interface{}{}
	if raw, ok := bag[metaKey]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("_meta is not an object: %w", err)
		}
	}
	meta[proxyKey] = true

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal _meta: %w", err)
	}
	bag[metaKey] = metaJSON

	return json.Marshal(bag)
}

// ProxyMetaAccepted reports whether a handshake result echoes `_meta.proxy`
// back. A proxy that does not echo the marker did not accept proxy mode, and
// its success response cannot be trusted.
func ProxyMetaAccepted(result json.RawMessage) bool {
	var probe struct {
		Meta struct {
			Proxy bool `json:"proxy"`
		} `json:"_meta"`
	}
	if err := json.Unmarshal(result, &probe); err != nil {
		return false
	}
	return probe.Meta.Proxy
}

// MCPTransportSupported reports whether a handshake result advertises
// `capabilities.mcp_acp_transport`, i.e. the downstream chain can consume
// MCP servers tunnelled over the agent protocol without conductor
// assistance.
func MCPTransportSupported(result json.RawMessage) bool {
	var probe struct {
		Capabilities struct {
			MCPTransport bool `json:"mcp_acp_transport"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &probe); err != nil {
		return false
	}
	return probe.Capabilities.MCPTransport
}
