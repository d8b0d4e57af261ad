// Package cmd implements the command-line interface of distrilock. It provides
// a hierarchical command structure with operations for running the servers and
// interacting with them as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts one server process per configured socket
//   - gateway: Starts the WebSocket gateway in front of the sockets
//   - store: Commands for store operations (get, set, incr, perf, etc.)
//   - lock: Commands for locking operations (acquire, renew, release)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See distrilock -help for a list of all commands.
package cmd
