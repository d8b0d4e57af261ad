package server

import (
	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Request, data []byte, s store.IStore) store.Result {
	// Check for nil store
	if s == nil {
		return store.Failure(common.MsgUnknownStore)
	}

	// Handle different methods
	switch req.Method {
	case common.MethodSize:
		return s.Size()
	case common.MethodKeys:
		return s.Keys(req.Key)
	case common.MethodGet:
		return s.Get(req.Key)
	case common.MethodSet:
		return s.Set(req.Key, req.Expiry, data)
	case common.MethodDelete:
		return s.Delete(req.Key)
	case common.MethodUpdate:
		return s.Update(req.Key, req.Expiry, data)
	default:
		return store.Failure(common.MsgUnknownMethod)
	}
}
