package protocol

import "encoding/json"

// Responder carries the two continuations bound to wherever a reply to a
// forwarded request must ultimately be delivered. Exactly one of the two is
// invoked, exactly once.
type Responder interface {
	// Succeed delivers a success result.
	Succeed(result json.RawMessage)
	// Fail delivers an error.
	Fail(rpcErr *Error)
}

// ResponderFuncs adapts two callbacks to a Responder. Nil callbacks are
// no-ops.
type ResponderFuncs struct {
	OnSucceed func(result json.RawMessage)
	OnFail    func(rpcErr *Error)
}

// Succeed invokes the success callback.
func (r ResponderFuncs) Succeed(result json.RawMessage) {
	if r.OnSucceed != nil {
		r.OnSucceed(result)
	}
}

// Fail invokes the failure callback.
func (r ResponderFuncs) Fail(rpcErr *Error) {
	if r.OnFail != nil {
		r.OnFail(rpcErr)
	}
}

// Dispatch is the conductor-internal, connection-agnostic form of a wire
// message. A request dispatch carries a bound Responder in place of a raw id;
// ids only have meaning on the connection they arrived on.
type Dispatch interface {
	dispatch()
}

// RequestDispatch is a request whose eventual answer flows through the bound
// Responder. OriginalID is the id the request carried on its source
// connection, kept for diagnostics only.
type RequestDispatch struct {
	Method     string
	Params     json.RawMessage
	Responder  Responder
	OriginalID interface{}
}

func (*RequestDispatch) dispatch() {}

// NotificationDispatch is a one-way message.
type NotificationDispatch struct {
	Method string
	Params json.RawMessage
}

func (*NotificationDispatch) dispatch() {}

// ResponseDispatch is an answer to a request the conductor previously issued
// on the source connection; ID is the outgoing id the conductor generated.
type ResponseDispatch struct {
	ID     interface{}
	Result json.RawMessage
	Error  *Error
}

func (*ResponseDispatch) dispatch() {}
