// Package acp provides a Golang implementation of an Agent Client Protocol
// conductor: a routing engine that connects a client to an agent through an
// ordered chain of proxies over JSON-RPC.
package acp

import (
	"github.com/ajitpratap0/acp-conductor-go/pkg/conductor"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
	"github.com/ajitpratap0/acp-conductor-go/pkg/transport"
)

// Version represents the current version of the library
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewConductor creates a new conductor
	NewConductor = conductor.New

	// StaticChain builds an instantiator from fixed connectors
	StaticChain = transport.Static

	// Pipe creates a connected in-memory connection pair
	Pipe = transport.Pipe
)

// Reserved protocol methods
const (
	MethodInitialize        = protocol.MethodInitialize
	MethodInitializeACP     = protocol.MethodInitializeACP
	MethodProxyRequest      = protocol.MethodProxyRequest
	MethodProxyNotification = protocol.MethodProxyNotification
	MethodMCPConnect        = protocol.MethodMCPConnect
	MethodMCPMessage        = protocol.MethodMCPMessage
	MethodMCPDisconnect     = protocol.MethodMCPDisconnect
)

// Conductor options
var (
	WithLogger  = conductor.WithLogger
	WithMetrics = conductor.WithMetrics
	WithTracer  = conductor.WithTracer
	WithBridge  = conductor.WithBridge
	WithConfig  = conductor.WithConfig
)
