// Package websocket tunnels the distrilock protocol through WebSocket
// connections (golang.org/x/net/websocket).
//
// Every binary message carries exactly one frame, byte identical to the frames
// of the unix transport. A request message is
//
//	[8B correlation id][1B header length][msgpack header][payload]
//
// and the payload length must match the data_len of the header.
//
// The client side (NewWebSocketClientTransport) reuses the multiplexing
// transport of the base package: one connection, concurrent calls matched by
// correlation id. TLS with a custom CA file and a bearer token sent on the
// handshake are supported.
//
// The server side is a Gateway: it serves GET /cache/{store}, checks the token
// once on the handshake and forwards the requests of a connection to the
// (socket, index) pair bound to the store name. The index of a forwarded
// request is always replaced by the bound index. Connections are closed when
// the configured session lifetime elapses, clients reconnect with a fresh token.
package websocket
