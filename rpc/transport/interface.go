package transport

import (
	"github.com/ValentinKolb/smolDB/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ISession processes the requests of a single connection. The transport
// calls Handle once per received frame, in order, and never concurrently:
// a session may carry per-connection state such as the access key or the
// encryption context.
type ISession interface {
	// Handle processes one request frame and returns the response frame.
	Handle(req []byte) (resp []byte)
	// Close releases session state when the connection ends.
	Close()
}

// SessionFactory creates a new session for each accepted connection.
type SessionFactory func() ISession

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterSessionFactory registers the factory the transport uses to
	// create one session per accepted connection.
	RegisterSessionFactory(factory SessionFactory)
	// Listen starts the transport layer and serves connections until
	// Shutdown is called. It blocks.
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting connections, closes the open ones and
	// waits for their sessions to finish.
	Shutdown() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport. A
// client transport holds a single connection, requests are serialized and
// answered in order.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(req []byte) (resp []byte, err error)
	// Reconnect drops the current connection and dials a fresh one. Any
	// per-connection server state is lost, callers are responsible for
	// re-establishing their session.
	Reconnect() error
	// Close closes the transport connection
	Close() error
}
