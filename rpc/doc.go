// Package rpc provides the communication layer between the services of a host
// and the distrilock stores.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including the
//     Request and Response types, configuration structures, and logging.
//
//   - transport: Frame transport abstractions with a multiplexing client and
//     a worker pool server (Unix sockets, WebSocket tunnel and gateway).
//
//   - serializer: Encoding of the request header as a msgpack map.
//
//   - client: RPC client implementations for the store and lock manager interfaces,
//     allowing applications to interact with remote stores transparently.
//
//   - server: The server of one socket, dispatching requests to its stores by
//     index and method.
package rpc
