// Package common provides core data structures shared across the database
// server and client. It defines the wire protocol and the configuration
// structures used by other packages.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a
//     flexible structure that adapts to different operation types.
//     Includes factory methods for creating request and response messages.
//
//   - MessageType: Enumeration defining all supported operation types,
//     categorized into session, database lifecycle, data, listing, access
//     management and encryption messages.
//
//   - ServerConfig: Configuration for the server, covering storage mode,
//     invalidation, access control, network and logging settings.
//
//   - ClientConfig: Configuration for client components, controlling the
//     endpoint, access key, timeouts and retry behavior.
package common
