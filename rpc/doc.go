// Package rpc contains the client/server communication stack of the
// database: the wire protocol (common), pluggable serializers, the
// session-oriented transport layer with TCP and Unix socket
// implementations, the optional RSA-encrypted channel, the server that
// dispatches requests to the registry, and the Go client library.
package rpc
