// Package transport defines the interfaces and abstractions for RPC
// communication between the database server and its clients. It provides a
// common contract that all transport implementations must fulfill, enabling
// protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Session-oriented request handling: one session per connection,
//     requests processed strictly in order
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport
//     implementations that handle connection management and request
//     sending.
//
//   - IRPCServerTransport: Interface for server-side transport
//     implementations that accept connections and feed their frames to a
//     session.
//
//   - ISession / SessionFactory: Per-connection request processing with
//     connection-scoped state.
package transport
