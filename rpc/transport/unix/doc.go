// Package unix implements the transport of distrilock over unix domain sockets.
// It extends the base transport with connectors that dial and listen on socket
// files, all framing and multiplexing is inherited from the base package.
//
// The server removes a stale socket file before listening and removes its own
// socket file when the listener is closed. Missing parent directories are created.
//
// Clients connecting with an empty endpoint use common.DefaultUnixSocketPath.
package unix
