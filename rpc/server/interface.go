package server

import (
	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for translating a decoded request into a store call
type IRPCServerAdapter interface {
	// Handle executes the request against the store and returns its result.
	// Unknown methods fail with common.MsgUnknownMethod.
	Handle(req *common.Request, data []byte, store store.IStore) store.Result
}
