// Package base provides the transport-agnostic core of the RPC transport
// layer. The concrete transports (tcp, unix) inject a connector that knows
// how to create listeners and connections, everything else lives here:
// length-prefixed framing, the accept loop with one session per connection,
// graceful shutdown and the single-connection client.
package base
