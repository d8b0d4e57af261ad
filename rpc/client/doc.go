// Package client implements the store client of distrilock. It translates the
// store operations into requests, sends them through a multiplexing client
// transport and decodes the responses.
//
// Key Components:
//
//   - IStoreClient: Size, Keys, Get, Set, Update, Delete and the counter helper
//     Incr, each with a context.Context. A failed store operation is reported
//     with ok=false, errors are reserved for transport failures and
//     cancellation.
//
//   - NewRPCStore: creates a client for one store index. Many clients can share
//     one connected transport, all their calls are multiplexed over a single
//     connection.
//
//   - NewRPCLockMgr: a lockmgr.ILockManager on top of a lock store.
//
// Usage Example:
//
//	t := unix.NewUnixClientTransport()
//	if err := t.Connect(common.ClientConfig{Endpoint: "/mem/register", TimeoutSecond: 5}); err != nil {
//	  return err
//	}
//	defer t.Close()
//
//	s := serializer.NewMsgpackSerializer()
//	sessions := client.NewRPCStore(0, t, s)
//	tokens := client.NewRPCStore(1, t, s)
//
//	ok, resp, err := sessions.Set(ctx, "alice", common.ExpireIn(30), []byte("data"))
package client
