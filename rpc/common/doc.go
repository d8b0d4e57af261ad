// Package common provides the protocol types, configuration structures and
// logging setup shared by the server, the client and the command line tool.
//
// Key Components:
//
//   - Request / Response: the header of a request frame and a decoded
//     response frame. Request keys are lowercased on construction, the
//     factory functions (NewGetRequest, NewSetRequest, ...) build the header
//     for every Method.
//
//   - Method: the closed set of operations (size, keys, get, set, delete,
//     update) in wire order.
//
//   - ServerConfig: the socket topology (one entry per server process), the
//     gateway bindings and process wide settings. Loaded from a config file
//     through viper, see cmd/serve.
//
//   - ClientConfig: endpoint, timeout and TLS/token settings of a client
//     transport.
//
//   - Logger: a logging implementation plugged into dragonboats logger
//     package, giving every package logger the same "LEVEL | pkg | msg" format.
package common
