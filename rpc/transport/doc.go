// Package transport defines the interfaces between the RPC layer and the
// medium carrying request and response frames.
//
// Key Components:
//
//   - IRPCClientTransport: a single multiplexed connection. Calls are matched
//     to responses by correlation id, so any number of goroutines can share
//     one transport.
//
//   - IRPCServerTransport: accepts connections on an endpoint and calls a
//     ServerHandleFunc for every request.
//
//   - ServerHandleFunc: callback executing one decoded request.
//
// Implementations live in the sub packages: base (medium independent client,
// server and frame codec), unix (Unix domain sockets) and websocket (the
// WebSocket tunnel and gateway).
package transport
