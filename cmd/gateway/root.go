package gateway

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	cmdUtil "github.com/homenode/distrilock/cmd/util"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/homenode/distrilock/rpc/transport/unix"
	"github.com/homenode/distrilock/rpc/transport/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	gatewayConfig = &common.ServerConfig{}
	GatewayCmd    = &cobra.Command{
		Use:   "gateway",
		Short: "Start the WebSocket gateway",
		Long: `Start the WebSocket gateway for the stores listed in the [gateway] section of the configuration file. Every store is reachable on /cache/<name>, the sockets must be served by "distrilock serve".`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupServerConfigFlags(GatewayCmd)

	key := "gateway-endpoint"
	GatewayCmd.Flags().String(key, "", cmdUtil.WrapString("The address the gateway listens on (overrides gateway.endpoint)"))

	key = "gateway-token"
	GatewayCmd.Flags().String(key, "", cmdUtil.WrapString("The bearer token of the gateway (overrides gateway.token)"))
}

// processConfig reads the configuration file and the gateway overrides
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	config, err := cmdUtil.LoadServerConfig(cmd)
	if err != nil {
		return err
	}
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	if endpoint := viper.GetString("gateway-endpoint"); endpoint != "" {
		config.Gateway.Endpoint = endpoint
	}
	if token := viper.GetString("gateway-token"); token != "" {
		config.Gateway.Token = token
	}
	if config.Gateway.Endpoint == "" {
		return fmt.Errorf("%w: no gateway endpoint configured", common.ErrInvalidConfig)
	}
	if len(config.Gateway.Stores) == 0 {
		return fmt.Errorf("%w: no gateway stores configured", common.ErrInvalidConfig)
	}

	gatewayConfig = config
	return nil
}

// run connects to the sockets of the gateway stores and serves the gateway
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// one connection per socket, shared by all routes of the socket
	transports := make(map[string]transport.IRPCClientTransport)
	defer func() {
		for _, t := range transports {
			t.Close()
		}
	}()

	routes := make(map[string]websocket.Route, len(gatewayConfig.Gateway.Stores))
	for _, gs := range gatewayConfig.Gateway.Stores {
		t, ok := transports[gs.Socket]
		if !ok {
			t = unix.NewUnixClientTransport()
			err := t.Connect(common.ClientConfig{
				Endpoint:      gatewayConfig.SocketPath(gs.Socket),
				TimeoutSecond: 10,
			})
			if err != nil {
				return fmt.Errorf("gateway store %q: %w", gs.Name, err)
			}
			transports[gs.Socket] = t
		}
		routes[strings.ToLower(gs.Name)] = websocket.Route{Index: gs.Index, Transport: t}
	}

	gw := websocket.NewGateway(routes, websocket.GatewayOptions{
		Token:      gatewayConfig.Gateway.Token,
		SessionTTL: gatewayConfig.Gateway.SessionTTL(),
		Metrics:    metrics.NewSet(),
	})

	return gw.ListenAndServe(ctx, gatewayConfig.Gateway.Endpoint, gatewayConfig.Gateway.CertFile, gatewayConfig.Gateway.KeyFile)
}
