package common

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/homenode/distrilock/lib/store"
)

// ErrInvalidConfig is wrapped by all configuration validation errors
var ErrInvalidConfig = errors.New("invalid config")

// --------------------------------------------------------------------------
// Server configuration structs
// --------------------------------------------------------------------------

// SocketConfig describes one socket: a server process hosting NumStores
// stores of one strategy.
type SocketConfig struct {
	Name      string `mapstructure:"name"`
	NumStores int    `mapstructure:"num_stores"`
	Strat     string `mapstructure:"strat"`
}

// Strategy returns the parsed store strategy of the socket
func (s SocketConfig) Strategy() (store.Strategy, error) {
	return store.ParseStrategy(s.Strat)
}

// GatewayStore binds a public gateway route to a store on a socket
type GatewayStore struct {
	Name   string `mapstructure:"name"`
	Socket string `mapstructure:"socket"`
	Index  uint64 `mapstructure:"index"`
}

// GatewayConfig configures the WebSocket gateway
type GatewayConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
	// SessionTTLSecond closes a gateway connection after this many seconds (0 = never)
	SessionTTLSecond int            `mapstructure:"session_ttl"`
	Stores           []GatewayStore `mapstructure:"stores"`
}

// SessionTTL returns the session lifetime as a duration
func (g *GatewayConfig) SessionTTL() time.Duration {
	return time.Duration(g.SessionTTLSecond) * time.Second
}

// ServerConfig is the configuration of a whole server topology.
// The first entry of Servers runs in the controlling process, every other
// entry in its own process.
type ServerConfig struct {
	PathPrefix        string         `mapstructure:"path_prefix"`
	LogLevel          string         `mapstructure:"log_level"`
	MaxWorkersPerConn int            `mapstructure:"max_workers_per_conn"`
	MetricsEndpoint   string         `mapstructure:"metrics_endpoint"`
	AllowedUIDs       []uint32       `mapstructure:"allowed_uids"`
	Servers           []SocketConfig `mapstructure:"servers"`
	Gateway           GatewayConfig  `mapstructure:"gateway"`
}

// Validate checks the configuration for errors
func (c *ServerConfig) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("%w: no servers configured", ErrInvalidConfig)
	}
	if strings.HasPrefix(c.PathPrefix, ".") {
		return fmt.Errorf("%w: path prefix must not be relative: %q", ErrInvalidConfig, c.PathPrefix)
	}

	names := make(map[string]SocketConfig, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name == "" || strings.HasPrefix(s.Name, ".") || strings.ContainsRune(s.Name, filepath.Separator) {
			return fmt.Errorf("%w: invalid socket name %q", ErrInvalidConfig, s.Name)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("%w: duplicate socket name %q", ErrInvalidConfig, s.Name)
		}
		if s.NumStores <= 0 {
			return fmt.Errorf("%w: socket %q needs at least one store", ErrInvalidConfig, s.Name)
		}
		if _, err := s.Strategy(); err != nil {
			return fmt.Errorf("%w: socket %q: %v", ErrInvalidConfig, s.Name, err)
		}
		names[s.Name] = s
	}

	routes := make(map[string]struct{}, len(c.Gateway.Stores))
	for _, gs := range c.Gateway.Stores {
		if gs.Name == "" {
			return fmt.Errorf("%w: gateway store without name", ErrInvalidConfig)
		}
		if _, dup := routes[gs.Name]; dup {
			return fmt.Errorf("%w: duplicate gateway store %q", ErrInvalidConfig, gs.Name)
		}
		s, ok := names[gs.Socket]
		if !ok {
			return fmt.Errorf("%w: gateway store %q references unknown socket %q", ErrInvalidConfig, gs.Name, gs.Socket)
		}
		if gs.Index >= uint64(s.NumStores) {
			return fmt.Errorf("%w: gateway store %q: index %d out of range (socket %q has %d stores)", ErrInvalidConfig, gs.Name, gs.Index, s.Name, s.NumStores)
		}
		routes[gs.Name] = struct{}{}
	}

	if c.MetricsEndpoint != "" {
		if _, err := c.MetricsAddr(c.Servers[0].Name); err != nil {
			return err
		}
	}

	if c.MaxWorkersPerConn < 0 {
		return fmt.Errorf("%w: max_workers_per_conn must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Socket returns the configuration of the socket with the given name
func (c *ServerConfig) Socket(name string) (SocketConfig, bool) {
	for _, s := range c.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return SocketConfig{}, false
}

// SocketPath returns the filesystem path of a socket: /<prefix>/<name>.
// Without prefix and name the DefaultUnixSocketPath is used.
func (c *ServerConfig) SocketPath(name string) string {
	if c.PathPrefix == "" && name == "" {
		return DefaultUnixSocketPath
	}
	return filepath.Join("/", strings.ToLower(c.PathPrefix), name)
}

// MetricsAddr returns the address the metrics of a socket are served on.
// Every process needs its own port: the n-th socket of the configuration
// listens on the port of MetricsEndpoint plus n. Empty if metrics are disabled.
func (c *ServerConfig) MetricsAddr(name string) (string, error) {
	if c.MetricsEndpoint == "" {
		return "", nil
	}
	host, portStr, err := net.SplitHostPort(c.MetricsEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: metrics endpoint %q: %v", ErrInvalidConfig, c.MetricsEndpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("%w: metrics endpoint %q: invalid port", ErrInvalidConfig, c.MetricsEndpoint)
	}
	for i, s := range c.Servers {
		if s.Name == name {
			return net.JoinHostPort(host, strconv.Itoa(port+i)), nil
		}
	}
	return "", fmt.Errorf("%w: unknown socket %q", ErrInvalidConfig, name)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Path Prefix", c.PathPrefix)
	addField("Workers per Conn", strconv.Itoa(max(1, c.MaxWorkersPerConn)))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}
	if len(c.AllowedUIDs) > 0 {
		addField("Allowed UIDs", fmt.Sprint(c.AllowedUIDs))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Sockets")
	for i, s := range c.Servers {
		mode := "child process"
		if i == 0 {
			mode = "main process"
		}
		addField(s.Name, fmt.Sprintf("%d x %s (%s) @ %s", s.NumStores, s.Strat, mode, c.SocketPath(s.Name)))
	}

	if c.Gateway.Endpoint != "" {
		addSection("Gateway")
		addField("Endpoint", c.Gateway.Endpoint)
		addField("TLS", strconv.FormatBool(c.Gateway.CertFile != ""))
		if c.Gateway.SessionTTLSecond > 0 {
			addField("Session TTL", fmt.Sprintf("%d sec", c.Gateway.SessionTTLSecond))
		}
		for _, gs := range c.Gateway.Stores {
			addField("/cache/"+gs.Name, fmt.Sprintf("%s[%d]", gs.Socket, gs.Index))
		}
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures a client transport
type ClientConfig struct {
	// Endpoint is a socket path (unix) or a ws:// / wss:// URL (websocket)
	Endpoint      string
	TimeoutSecond int

	// WebSocket only
	Token  string
	CAFile string

	WriteBufferSize int
	ReadBufferSize  int
}

// Timeout returns the per-call timeout as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.CAFile != "" {
		addField("CA File", c.CAFile)
	}
	addField("Token", strconv.FormatBool(c.Token != ""))

	return sb.String()
}
