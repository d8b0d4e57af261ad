package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/serializer"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/unix"
	"github.com/homenode/distrilock/rpc/transport/websocket"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (DLOCK_<FLAG>)
	EnvPrefix = "dlock"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "transport"
	cmd.PersistentFlags().String(key, "unix", WrapString("Transport to use (unix, ws)"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, common.DefaultUnixSocketPath, WrapString("The socket path (unix) or the gateway URL including the store route (ws), e.g. wss://host:8000/cache/misc"))

	key = "index"
	cmd.PersistentFlags().Uint64(key, 0, WrapString("Index of the store on the socket (ignored by the gateway)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request (0 = no timeout)"))

	key = "token"
	cmd.PersistentFlags().String(key, "", WrapString("Bearer token for the gateway (ws only)"))

	key = "ca-file"
	cmd.PersistentFlags().String(key, "", WrapString("PEM file with the CA certificates of the gateway (wss only)"))

	key = "buffer-size"
	cmd.PersistentFlags().Int(key, 64, WrapString("The size of the read and write buffer of the connection (in KB, unix only)"))
}

// InitConfig loads .env files and binds environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// InitLogging sets up the loggers with the level of the log-level flag
func InitLogging() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	bufferSize := viper.GetInt("buffer-size") * 1024
	return &common.ClientConfig{
		Endpoint:        viper.GetString("endpoint"),
		TimeoutSecond:   viper.GetInt("timeout"),
		Token:           viper.GetString("token"),
		CAFile:          viper.GetString("ca-file"),
		WriteBufferSize: bufferSize,
		ReadBufferSize:  bufferSize,
	}
}

// GetSerializer creates the serializer of the protocol
func GetSerializer() serializer.IRPCSerializer {
	return serializer.NewMsgpackSerializer()
}

// GetTransport creates transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "ws", "websocket":
		return websocket.NewWebSocketClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// ConnectTransport creates the configured transport and connects it
func ConnectTransport() (transport.IRPCClientTransport, error) {
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}
	if err := t.Connect(*GetClientConfig()); err != nil {
		return nil, err
	}
	return t, nil
}

// GetIndex retrieves the configured store index
func GetIndex() uint64 {
	return viper.GetUint64("index")
}

// ParseExpiry parses an expiry argument: a number of seconds or "none"
func ParseExpiry(s string) (*int32, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("expiry must be a number or \"none\": %w", err)
	}
	return common.ExpireIn(int32(v)), nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// SetupServerConfigFlags adds the flags shared by commands reading the server
// configuration file. The flags override the values of the file.
func SetupServerConfigFlags(cmd *cobra.Command) {
	key := "config"
	cmd.PersistentFlags().String(key, "config.toml", WrapString("Path of the server configuration file"))

	key = "path-prefix"
	cmd.PersistentFlags().String(key, "", WrapString("Directory of the sockets (overrides path_prefix)"))

	key = "max-workers-per-conn"
	cmd.PersistentFlags().Int(key, 1, WrapString("Requests processed concurrently per connection, 1 processes them in order (overrides max_workers_per_conn)"))

	key = "metrics-endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("host:port of the metrics endpoint of the first socket, every further socket uses the next port (overrides metrics_endpoint)"))
}

// serverConfigKeys maps the keys of the configuration file to their flags
var serverConfigKeys = map[string]string{
	"path_prefix":          "path-prefix",
	"max_workers_per_conn": "max-workers-per-conn",
	"metrics_endpoint":     "metrics-endpoint",
	"log_level":            "log-level",
}

// LoadServerConfig reads and validates the server configuration file of the
// config flag. Flags and environment variables (DLOCK_PATH_PREFIX, ...) take
// precedence over the file.
func LoadServerConfig(cmd *cobra.Command) (*common.ServerConfig, error) {
	for key, flag := range serverConfigKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	viper.SetConfigFile(viper.GetString("config"))
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &common.ServerConfig{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
