// Package protocol defines the wire-level message model shared by every
// component in a conductor chain: JSON-RPC 2.0 requests, notifications and
// responses, the conductor-internal dispatch forms, and the reserved methods
// and capability markers of the agent protocol.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the JSON-RPC version spoken on every connection.
	JSONRPCVersion = "2.0"
)

// ErrorCode represents a JSON-RPC 2.0 error code.
type ErrorCode int

// Standard error codes as per the JSON-RPC 2.0 specification.
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Message is implemented by the three JSON-RPC message kinds. A connection's
// inbound sequence yields values of this type.
type Message interface {
	message()
}

// Request represents a JSON-RPC 2.0 request. The ID is unique per connection
// while the request is in flight; it carries no meaning beyond that
// connection.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (*Request) message() {}

// NewRequest creates a new request, marshalling params when non-nil.
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	if id == nil {
		return nil, fmt.Errorf("request requires an id")
	}
	if method == "" {
		return nil, fmt.Errorf("request requires a method")
	}
	paramsJSON, err := marshalField(params, "params")
	if err != nil {
		return nil, err
	}
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsJSON,
	}, nil
}

// Notification represents a JSON-RPC 2.0 notification.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (*Notification) message() {}

// NewNotification creates a new notification, marshalling params when
// non-nil.
func NewNotification(method string, params interface{}) (*Notification, error) {
	if method == "" {
		return nil, fmt.Errorf("notification requires a method")
	}
	paramsJSON, err := marshalField(params, "params")
	if err != nil {
		return nil, err
	}
	return &Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result and
// Error is meaningful.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func (*Response) message() {}

// NewResponse creates a new success response.
func NewResponse(id interface{}, result interface{}) (*Response, error) {
	resultJSON, err := marshalField(result, "result")
	if err != nil {
		return nil, err
	}
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  resultJSON,
	}, nil
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(id interface{}, rpcErr *Error) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}

// Decode classifies and unmarshals a raw wire message. A payload carrying an
// id together with a result or error field is a Response; an id plus a method
// is a Request; a bare method is a Notification.
func Decode(data []byte) (Message, error) {
	var probe struct {
		ID     interface{}     `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch {
	case probe.ID != nil && (probe.Result != nil || probe.Error != nil):
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
		return &resp, nil
	case probe.ID != nil && probe.Method != "":
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("malformed request: %w", err)
		}
		return &req, nil
	case probe.Method != "":
		var note Notification
		if err := json.Unmarshal(data, &note); err != nil {
			return nil, fmt.Errorf("malformed notification: %w", err)
		}
		return &note, nil
	default:
		return nil, fmt.Errorf("message is neither request, notification nor response: %s", data)
	}
}

// Encode serializes a message for the wire.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

func marshalField(v interface{}, name string) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return data, nil
}
