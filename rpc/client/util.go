package client

import (
	"context"
	"fmt"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCStore with composition pattern
type rpcClientAdapter struct {
	index      uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests.
// It serializes the header, sends it with the payload and waits for the response.
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Request, data []byte) (bool, []byte, error) {
	// Serialize the request
	header, err := a.serializer.Serialize(*req)
	if err != nil {
		return false, nil, fmt.Errorf("failed to serialize %s: %w", req, err)
	}

	// Send the request
	ok, resp, err := a.transport.Send(ctx, header, data)
	if err != nil {
		Logger.Debugf("Request %s failed: %v", req, err)
		return false, nil, err
	}
	return ok, resp, nil
}
