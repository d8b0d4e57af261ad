package transport

import (
	"context"

	"github.com/homenode/distrilock/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// It is called by a server transport with the decoded request header and the
// payload (nil if the header has no data_len). ctx is cancelled when the
// connection is closed. The returned payload must fit into a response frame,
// larger payloads are replaced by a failure.
type ServerHandleFunc func(ctx context.Context, req *common.Request, data []byte) (ok bool, resp []byte)

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler called for every request
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the endpoint and serves connections until ctx is cancelled.
	// It returns nil after a shutdown through ctx.
	Listen(ctx context.Context, endpoint string) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the multiplexing RPC client transport.
// One transport owns one connection, all calls share it.
type IRPCClientTransport interface {
	// Connect establishes the connection and starts the background reader and writer
	Connect(config common.ClientConfig) error
	// Send sends an encoded request header and its payload and waits for the
	// matching response. A failed store operation is reported through ok, err
	// is reserved for transport failures and context cancellation.
	Send(ctx context.Context, header []byte, data []byte) (ok bool, resp []byte, err error)
	// Metrics returns the registry with the transport statistics
	Metrics() gometrics.Registry
	// Close closes the connection. Pending calls fail with base.ErrConnectionClosed.
	Close() error
}
