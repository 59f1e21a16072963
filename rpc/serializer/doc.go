// Package serializer provides message serialization capabilities for the
// database RPC system. It defines a common interface and multiple
// implementations for serializing and deserializing messages between client
// and server components.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations
//     must satisfy.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, the default.
//     Human-readable output makes it useful for debugging and for clients
//     written in other languages.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding,
//     a binary alternative for Go-to-Go deployments.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent
//	use across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused throughout the
//	application:
//
//	  serializer := serializer.NewJSONSerializer()
//	  data, err := serializer.Serialize(message)
//	  // ... send data ...
//	  var receivedMsg common.Message
//	  err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
