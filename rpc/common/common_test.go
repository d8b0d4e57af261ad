package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func validConfig() ServerConfig {
	return ServerConfig{
		PathPrefix: "/mem",
		Servers: []SocketConfig{
			{Name: "register", NumStores: 3, Strat: "lock"},
			{Name: "misc", NumStores: 2, Strat: "cache"},
			{Name: "count", NumStores: 1, Strat: "counter"},
		},
		Gateway: GatewayConfig{
			Stores: []GatewayStore{{Name: "misc_sensordata", Socket: "misc", Index: 1}},
		},
	}
}

func TestValidate(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(c *ServerConfig)
	}{
		{"NoServers", func(c *ServerConfig) { c.Servers = nil }},
		{"RelativePrefix", func(c *ServerConfig) { c.PathPrefix = "./sockets" }},
		{"DuplicateName", func(c *ServerConfig) { c.Servers[1].Name = "register" }},
		{"EmptyName", func(c *ServerConfig) { c.Servers[0].Name = "" }},
		{"NameWithSeparator", func(c *ServerConfig) { c.Servers[0].Name = "a/b" }},
		{"ZeroStores", func(c *ServerConfig) { c.Servers[0].NumStores = 0 }},
		{"NegativeStores", func(c *ServerConfig) { c.Servers[0].NumStores = -1 }},
		{"UnknownStrategy", func(c *ServerConfig) { c.Servers[2].Strat = "queue" }},
		{"GatewayUnknownSocket", func(c *ServerConfig) { c.Gateway.Stores[0].Socket = "nope" }},
		{"GatewayIndexOutOfRange", func(c *ServerConfig) { c.Gateway.Stores[0].Index = 2 }},
		{"GatewayDuplicateRoute", func(c *ServerConfig) {
			c.Gateway.Stores = append(c.Gateway.Stores, c.Gateway.Stores[0])
		}},
		{"GatewayNoName", func(c *ServerConfig) { c.Gateway.Stores[0].Name = "" }},
		{"InvalidMetricsEndpoint", func(c *ServerConfig) { c.MetricsEndpoint = "localhost" }},
		{"NegativeWorkers", func(c *ServerConfig) { c.MaxWorkersPerConn = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Servers = append([]SocketConfig(nil), c.Servers...)
			c.Gateway.Stores = append([]GatewayStore(nil), c.Gateway.Stores...)
			tt.modify(&c)

			err := c.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSocketPath(t *testing.T) {
	c := ServerConfig{PathPrefix: "/Mem"}
	if got := c.SocketPath("register"); got != "/mem/register" {
		t.Errorf("Expected /mem/register, got %s", got)
	}

	c.PathPrefix = "mem/sub"
	if got := c.SocketPath("count"); got != "/mem/sub/count" {
		t.Errorf("Expected /mem/sub/count, got %s", got)
	}

	c.PathPrefix = ""
	if got := c.SocketPath(""); got != DefaultUnixSocketPath {
		t.Errorf("Expected default path, got %s", got)
	}
}

func TestMetricsAddr(t *testing.T) {
	c := validConfig()

	addr, err := c.MetricsAddr("misc")
	if err != nil || addr != "" {
		t.Errorf("Expected no address without endpoint, got %q, %v", addr, err)
	}

	c.MetricsEndpoint = "127.0.0.1:9100"
	for name, want := range map[string]string{
		"register": "127.0.0.1:9100",
		"misc":     "127.0.0.1:9101",
		"count":    "127.0.0.1:9102",
	} {
		addr, err := c.MetricsAddr(name)
		if err != nil {
			t.Fatalf("MetricsAddr(%q) failed: %v", name, err)
		}
		if addr != want {
			t.Errorf("MetricsAddr(%q) = %s, want %s", name, addr, want)
		}
	}

	if _, err := c.MetricsAddr("nope"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for unknown socket, got %v", err)
	}
}

func TestConfigString(t *testing.T) {
	c := validConfig()
	c.Gateway.Endpoint = ":8000"
	s := c.String()

	for _, want := range []string{"register", "main process", "child process", "/mem/count", "/cache/misc_sensordata"} {
		if !strings.Contains(s, want) {
			t.Errorf("Config string does not contain %q:\n%s", want, s)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods {
		parsed, err := ParseMethod(strings.ToUpper(m.String()))
		if err != nil {
			t.Fatalf("ParseMethod(%s) failed: %v", m, err)
		}
		if parsed != m {
			t.Errorf("Expected %s, got %s", m, parsed)
		}
		if !m.Valid() {
			t.Errorf("Expected %s to be valid", m)
		}
	}

	if _, err := ParseMethod("incr"); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Expected ErrInvalidMethod, got %v", err)
	}
	if Method(6).Valid() {
		t.Errorf("Expected method 6 to be invalid")
	}
	if Method(6).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", Method(6))
	}
}

func TestNewRequest(t *testing.T) {
	req := NewSetRequest(2, "Sensor:Kitchen", ExpireIn(30), []byte("abc"))
	if req.Key != "sensor:kitchen" {
		t.Errorf("Expected lowercased key, got %q", req.Key)
	}
	if req.DataLen == nil || *req.DataLen != 3 {
		t.Errorf("Expected data length 3, got %v", req.DataLen)
	}
	if req.Expiry == nil || *req.Expiry != 30 {
		t.Errorf("Expected expiry 30, got %v", req.Expiry)
	}

	t.Run("NoPayload", func(t *testing.T) {
		if req := NewGetRequest(0, "a"); req.DataLen != nil {
			t.Errorf("Expected no data length, got %d", *req.DataLen)
		}
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		req := NewUpdateRequest(0, "a", nil, []byte{})
		if req.DataLen == nil || *req.DataLen != 0 {
			t.Errorf("Expected data length 0, got %v", req.DataLen)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"":        logger.INFO,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLogLevel("verbose"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
