// Package base implements the framing and connection handling shared by all
// transports of distrilock, independent of the medium (unix sockets, websockets).
// Medium specific packages only provide a connector.
//
// Request frames:
//
//	[8B correlation id][1B header length][msgpack header][payload]
//
// The payload is present iff the header carries a data_len. Response frames:
//
//	[8B correlation id][1B ok][2B payload length, big endian][payload]
//
// Key Components:
//
//   - clientTransport: multiplexes concurrent calls over a single connection.
//     Every call gets a random correlation id and a response channel in a
//     pending table. A writer goroutine drains a lock-free send queue and
//     flushes whenever the queue runs empty, a reader goroutine delivers
//     responses by id. Responses may arrive in any order.
//
//   - serverTransport: accepts connections and runs ServeConn for each of them.
//     A connection processes up to MaxWorkersPerConn requests concurrently,
//     with the default of one worker requests are answered in order.
//
//   - ServeConn: the per connection request loop, also used by the websocket
//     gateway. A malformed frame closes the connection.
//
// Unix socket peers are identified with SO_PEERCRED on linux and can be
// restricted to a list of user ids.
package base
