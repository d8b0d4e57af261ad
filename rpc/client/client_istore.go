package client

import (
	"context"
	"strconv"

	"github.com/homenode/distrilock/lib/store"
	"github.com/homenode/distrilock/lib/store/counterstore"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
)

// DefaultKeysRange is the range used when no range is given
const DefaultKeysRange = "0..10"

// NewRPCStore creates a client for the store with the given index.
// The transport must be connected. It can be shared by clients for
// different stores of the same socket.
func NewRPCStore(
	index uint64,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) IStoreClient {
	return &rpcStore{
		rpcClientAdapter{
			index:      index,
			transport:  transport,
			serializer: serializer,
		},
	}
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IStoreClient in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Size(ctx context.Context) (int, bool, error) {
	ok, resp, err := i.invokeRPCRequest(ctx, common.NewSizeRequest(i.index), nil)
	if err != nil || !ok {
		return 0, false, err
	}
	size, err := strconv.Atoi(string(resp))
	if err != nil {
		Logger.Warningf("Invalid size response %q", resp)
		return 0, false, nil
	}
	return size, true, nil
}

func (i *rpcStore) Keys(ctx context.Context, rangeSpec string) ([]string, bool, error) {
	if rangeSpec == "" {
		rangeSpec = DefaultKeysRange
	}
	ok, resp, err := i.invokeRPCRequest(ctx, common.NewKeysRequest(i.index, rangeSpec), nil)
	if err != nil || !ok {
		return nil, false, err
	}
	keys, err := store.DecodeKeys(resp)
	if err != nil {
		Logger.Warningf("Invalid keys response: %v", err)
		return nil, false, nil
	}
	return keys, true, nil
}

func (i *rpcStore) Get(ctx context.Context, key string) (bool, []byte, error) {
	return i.invokeRPCRequest(ctx, common.NewGetRequest(i.index, key), nil)
}

func (i *rpcStore) Set(ctx context.Context, key string, expiry *int32, data []byte) (bool, []byte, error) {
	return i.invokeRPCRequest(ctx, common.NewSetRequest(i.index, key, expiry, data), data)
}

func (i *rpcStore) Update(ctx context.Context, key string, expiry *int32, data []byte) (bool, []byte, error) {
	return i.invokeRPCRequest(ctx, common.NewUpdateRequest(i.index, key, expiry, data), data)
}

func (i *rpcStore) Delete(ctx context.Context, key string) (bool, []byte, error) {
	return i.invokeRPCRequest(ctx, common.NewDeleteRequest(i.index, key), nil)
}

func (i *rpcStore) Incr(ctx context.Context, key string, expiry *int32) (uint32, bool, error) {
	ok, resp, err := i.invokeRPCRequest(ctx, common.NewSetRequest(i.index, key, expiry, nil), nil)
	if err != nil {
		return 0, false, err
	}
	value, err := counterstore.DecodeValue(resp)
	if err != nil {
		// a failure without counter value, e.g. an invalid expiry
		return 0, false, nil
	}
	return value, ok, nil
}
