package cmd

import (
	"fmt"
	"os"

	"github.com/homenode/distrilock/cmd/gateway"
	"github.com/homenode/distrilock/cmd/lock"
	"github.com/homenode/distrilock/cmd/serve"
	"github.com/homenode/distrilock/cmd/store"
	"github.com/homenode/distrilock/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "distrilock",
		Short: "shared ephemeral state for local services",
		Long: fmt.Sprintf(`distrilock (v%s)

Locks, TTL caches and bounded counters for the services of one host,
served over unix sockets with sub-millisecond latency.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of distrilock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("distrilock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(gateway.GatewayCmd)
	RootCmd.AddCommand(store.StoreCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
