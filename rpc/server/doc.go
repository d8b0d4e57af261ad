// Package server implements the RPC server of distrilock. One server serves one
// socket of the configuration: NumStores independent stores of the configured
// strategy (lock, cache or counter), addressed by the index of a request.
//
// Key Components:
//
//   - IRPCServerAdapter: translates a decoded request into a store call. The
//     adapter returned by NewIStoreServerAdapter dispatches with an explicit
//     switch over the method.
//
//   - RPCServer: owns the stores, registers the request handler on the transport
//     (a unix socket by default) and records request metrics.
//
// Requests for an index without store fail with common.MsgUnknownStore, methods
// outside the protocol with common.MsgUnknownMethod. Keys are lowercased
// before they reach a store.
//
// Metrics (github.com/VictoriaMetrics/metrics), served on /metrics if a
// metrics endpoint is configured:
//
//	distrilock_requests_total{socket,method,ok}
//	distrilock_request_duration_seconds{socket,method}
//	distrilock_store_keys{socket,index}
//	distrilock_connections_active{socket}
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  PathPrefix: "/mem",
//	  Servers: []common.SocketConfig{
//	    {Name: "register", NumStores: 3, Strat: "lock"},
//	  },
//	}
//
//	s, err := server.NewRPCServer(config, "register", nil)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatal(err)
//	}
package server
