// Package server implements the RPC server for the database. It wires a
// registry, a serializer and a transport together and runs one session per
// client connection.
//
// A session processes its connection's requests strictly in order and
// carries the connection-scoped state: the access key set with SetKey and
// the client's public key once the encryption handshake is complete. Every
// other message maps onto exactly one registry operation.
package server
