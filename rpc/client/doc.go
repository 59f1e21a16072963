// Package client provides the Go client library for the database server.
//
// A Client wraps one connection and exposes every server operation as a
// method. The connection-scoped session state (the access key and the
// optional encryption handshake) is established on connect and replayed
// transparently after a reconnect, so transient network failures only cost
// a retry.
//
// Usage:
//
//	c, err := client.NewClient(
//		common.ClientConfig{Endpoint: "localhost:8222", AccessKey: "secret"},
//		serializer.NewJSONSerializer(),
//		tcp.NewTCPClientTransport(),
//	)
//	if err != nil { ... }
//	defer c.Close()
//
//	if err := c.CreateDB("users", nil); err != nil { ... }
//	_, _, err = c.Write("users", "alice", `{"name":"Alice"}`)
package client
