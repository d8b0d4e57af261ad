package serve

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	cmdUtil "github.com/homenode/distrilock/cmd/util"
	"github.com/homenode/distrilock/rpc/common"
	"github.com/homenode/distrilock/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("serve")

// childStopTimeout is how long a child process may take to exit after SIGTERM
const childStopTimeout = 5 * time.Second

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the distrilock servers",
		Long: `Start one server process per socket of the configuration file. The first socket is served by this process, every other socket by a child process. The configuration can be overridden via command line flags or environment variables. The format of the environment variables is DLOCK_<flag> (e.g. DLOCK_PATH_PREFIX=/mem)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupServerConfigFlags(ServeCmd)

	key := "socket"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Serve only the socket with this name (used for the child processes)"))
}

// processConfig reads the configuration file and overrides it with the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
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

	serveCmdConfig = config
	return nil
}

// run starts the socket servers
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// child process: serve a single socket
	if name := viper.GetString("socket"); name != "" {
		return serveSocket(ctx, name)
	}

	fmt.Println(serveCmdConfig.String())

	args, err := childArgs(cmd)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveSocket(ctx, serveCmdConfig.Servers[0].Name)
	})
	for _, s := range serveCmdConfig.Servers[1:] {
		g.Go(func() error {
			return runChild(ctx, s.Name, args)
		})
	}

	err = g.Wait()
	if err != nil {
		Logger.Errorf("Stopped all sockets: %v", err)
	} else {
		Logger.Infof("Stopped all sockets")
	}
	return err
}

// serveSocket serves the socket with the given name until ctx is cancelled
func serveSocket(ctx context.Context, name string) error {
	s, err := server.NewRPCServer(*serveCmdConfig, name, nil)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

// runChild runs the socket with the given name in a child process. The child
// is stopped with SIGTERM when ctx is cancelled. A child exiting on its own
// is an error and stops the whole topology.
func runChild(ctx context.Context, name string, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	child := exec.CommandContext(ctx, exe, slices.Concat(args, []string{"--socket", name})...)
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Env = append(os.Environ(), common.ChildEnv())
	child.SysProcAttr = childSysProcAttr()
	child.Cancel = func() error {
		return child.Process.Signal(syscall.SIGTERM)
	}
	child.WaitDelay = childStopTimeout

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start socket %q: %w", name, err)
	}
	Logger.Infof("Started socket %q in process %d", name, child.Process.Pid)

	err = child.Wait()
	if ctx.Err() != nil {
		Logger.Infof("Socket %q (process %d) stopped", name, child.Process.Pid)
		return nil
	}
	if err == nil {
		return fmt.Errorf("socket %q exited unexpectedly", name)
	}
	return fmt.Errorf("socket %q: %w", name, err)
}

// childArgs returns the arguments of the child processes: the serve command
// with the absolute config path and every flag set on the command line
func childArgs(cmd *cobra.Command) ([]string, error) {
	configPath, err := filepath.Abs(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	args := []string{cmd.Name(), "--config", configPath}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config", "socket":
		default:
			args = append(args, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
		}
	})
	return args, nil
}
