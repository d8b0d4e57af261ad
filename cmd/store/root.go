package store

import (
	"github.com/homenode/distrilock/cmd/util"
	"github.com/homenode/distrilock/rpc/client"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/spf13/cobra"
)

var (
	rpcStore     client.IStoreClient
	rpcTransport transport.IRPCClientTransport

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:                "store",
		Short:              "Perform operations on a store",
		PersistentPreRunE:  setupStoreClient,
		PersistentPostRunE: closeStoreClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the store command
	util.SetupRPCClientFlags(StoreCommands)

	// Add subcommands
	StoreCommands.AddCommand(sizeCmd)
	StoreCommands.AddCommand(keysCmd)
	StoreCommands.AddCommand(getCmd)
	StoreCommands.AddCommand(setCmd)
	StoreCommands.AddCommand(updateCmd)
	StoreCommands.AddCommand(deleteCmd)
	StoreCommands.AddCommand(incrCmd)
	StoreCommands.AddCommand(perfTestCmd)
}

// setupStoreClient connects the transport and creates the store client
func setupStoreClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	t, err := util.ConnectTransport()
	if err != nil {
		return err
	}
	rpcTransport = t

	// Create the store client
	rpcStore = client.NewRPCStore(
		util.GetIndex(),
		t,
		util.GetSerializer(),
	)
	return nil
}

func closeStoreClient(*cobra.Command, []string) error {
	if rpcTransport == nil {
		return nil
	}
	return rpcTransport.Close()
}
