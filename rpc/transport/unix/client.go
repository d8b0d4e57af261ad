package unix

import (
	"net"
	"time"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/base"
)

const dialTimeout = 5 * time.Second

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(config common.ClientConfig) (base.ClientConn, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = common.DefaultUnixSocketPath
	}

	conn, err := net.DialTimeout("unix", endpoint, dialTimeout)
	if err != nil {
		return nil, err
	}
	return base.NewStreamConn(conn, max(config.WriteBufferSize, config.ReadBufferSize)), nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
