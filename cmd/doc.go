// Package cmd implements the command-line interface for smolDB. It
// provides a hierarchical command structure with operations for running
// the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the smolDB server
//   - db: Client commands for database operations (create, read, write,
//     access management, etc.)
//   - util: Shared utilities for command-line processing and configuration
//     (internal use)
//
// See smoldb -help for a list of all commands.
package cmd
