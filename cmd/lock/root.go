package lock

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/homenode/distrilock/cmd/util"
	"github.com/homenode/distrilock/lib/lockmgr"
	"github.com/homenode/distrilock/rpc/client"
	"github.com/homenode/distrilock/rpc/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcLockMgr   lockmgr.ILockManager
	rpcTransport transport.IRPCClientTransport

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform lock operations on a lock store",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// renewCmd represents the renew command
	renewCmd = &cobra.Command{
		Use:   "renew [key] [ownerID]",
		Short: "Extend a held lock",
		Long:  "Extend a held lock to ttl seconds from now. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRenew,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(renewCmd)
	LockCommands.AddCommand(releaseCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Add flags specific to acquire and renew
	acquireCmd.Flags().Int32("ttl", 30, util.WrapString("Lock lifetime in seconds"))
	renewCmd.Flags().Int32("ttl", 30, util.WrapString("Lock lifetime in seconds"))
}

// setupLockClient connects the transport and creates the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
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

	// Create the lock manager client
	rpcLockMgr = client.NewRPCLockMgr(
		util.GetIndex(),
		t,
		util.GetSerializer(),
	)
	return nil
}

func closeLockClient(*cobra.Command, []string) error {
	if rpcTransport == nil {
		return nil
	}
	return rpcTransport.Close()
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	key := args[0]

	// Attempt to acquire the lock
	acquired, ownerID, err := rpcLockMgr.AcquireLock(context.Background(), key, viper.GetInt32("ttl"))
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Println("acquired=false")
		return nil
	}

	// Convert owner ID to hex string for display
	fmt.Printf("acquired=true, ownerId=%s\n", hex.EncodeToString(ownerID))
	return nil
}

// runRenew handles the renew lock command
func runRenew(_ *cobra.Command, args []string) error {
	ownerID, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %v", err)
	}

	err = rpcLockMgr.RenewLock(context.Background(), args[0], ownerID, viper.GetInt32("ttl"))
	if errors.Is(err, lockmgr.ErrNotOwner) {
		fmt.Println("renewed=false")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to renew lock: %v", err)
	}

	fmt.Println("renewed=true")
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	key := args[0]

	// Convert hex string owner ID back to bytes
	ownerID, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %v", err)
	}

	// Attempt to release the lock
	released, err := rpcLockMgr.ReleaseLock(context.Background(), key, ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%t\n", released)
	return nil
}
