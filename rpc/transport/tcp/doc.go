// Package tcp provides the TCP implementation of the RPC transport layer,
// the default for network deployments.
package tcp
