package transport

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"time"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer for every frame received
// It takes the request payload and returns the response payload
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side of the framing protocol
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called sequentially for the frames of one connection
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the endpoint and serves connections in the background until Close is called
	Listen(config common.ServerConfig) error
	// Close stops accepting, closes all connections and waits for running handlers
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// It owns exactly one stream connection and does no retries.
// A zero deadline means the operation is not time bounded.
type IRPCClientTransport interface {
	// Connect dials the endpoint of the configuration, replacing any previous connection
	Connect(config common.ClientConfig, deadline time.Time) error
	// Send writes all of data
	Send(data []byte, deadline time.Time) error
	// Receive reads exactly n bytes
	Receive(n int, deadline time.Time) ([]byte, error)
	// Connected reports whether the transport holds an open connection
	Connected() bool
	// Close closes the transport connection
	Close() error
	// Name returns the name of the socket family (e.g., "unix")
	Name() string
}
