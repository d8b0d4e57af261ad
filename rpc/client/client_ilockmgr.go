package client

import (
	"github.com/homenode/distrilock/lib/lockmgr"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
)

// NewRPCLockMgr creates a lock manager for the lock store with the given index.
// The transport must be connected.
func NewRPCLockMgr(
	index uint64,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) lockmgr.ILockManager {
	return lockmgr.NewLockManager(NewRPCStore(index, transport, serializer))
}
