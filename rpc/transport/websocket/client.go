package websocket

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/base"
	"golang.org/x/net/websocket"
)

const (
	dialTimeout   = 10 * time.Second
	defaultOrigin = "http://localhost/"
)

// clientConnector implements the IClientConnector interface for WebSockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "websocket"
}

func (c *clientConnector) Connect(config common.ClientConfig) (base.ClientConn, error) {
	wsConfig, err := websocket.NewConfig(config.Endpoint, defaultOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket endpoint %q: %w", config.Endpoint, err)
	}
	wsConfig.Dialer = &net.Dialer{Timeout: dialTimeout}

	if config.Token != "" {
		wsConfig.Header.Set("Authorization", "Bearer "+config.Token)
	}

	if config.CAFile != "" {
		pool, err := loadCertPool(config.CAFile)
		if err != nil {
			return nil, err
		}
		wsConfig.TlsConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	ws, err := websocket.DialConfig(wsConfig)
	if err != nil {
		return nil, err
	}
	return newMessageConn(ws), nil
}

// loadCertPool reads PEM encoded CA certificates
func loadCertPool(file string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", file)
	}
	return pool, nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWebSocketClientTransport creates a new WebSocket client transport.
// The endpoint of the client config is the full URL of the gateway route,
// e.g. wss://host:8000/cache/sensordata.
func NewWebSocketClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
