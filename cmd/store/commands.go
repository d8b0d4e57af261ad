package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/homenode/distrilock/cmd/util"
	"github.com/spf13/cobra"
)

// result prints the outcome of an operation. A failed operation is not a
// command error, it is printed like a success.
func result(op string, ok bool, resp []byte) {
	if ok {
		fmt.Printf("%s: ok", op)
	} else {
		fmt.Printf("%s: failed", op)
	}
	if len(resp) > 0 {
		fmt.Printf(", resp=%s", resp)
	}
	fmt.Println()
}

// readValue returns the value argument. "-" reads the value from stdin,
// no argument means no value.
func readValue(args []string, i int) ([]byte, error) {
	if len(args) <= i {
		return nil, nil
	}
	if args[i] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return []byte(args[i]), nil
}

var (
	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Prints the number of keys in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			size, ok, err := rpcStore.Size(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("size=%d, ok=%t\n", size, ok)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [start..end]",
		Short: "Lists the keys in insertion order (default range 0..10)",
		Long:  "Lists the keys in insertion order. The range has the form start..end (end exclusive), start.. lists 100 keys, ..end starts at 0.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeSpec := ""
			if len(args) == 1 {
				rangeSpec = args[0]
			}
			keys, ok, err := rpcStore.Keys(context.Background(), rangeSpec)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("keys: invalid range")
				return nil
			}
			fmt.Printf("keys (%d): %s\n", len(keys), strings.Join(keys, ", "))
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ok, resp, err := rpcStore.Get(context.Background(), key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t, resp=%s\n", key, ok, resp)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [expiry|none] [value|-]",
		Short: "Sets the value for a key, expiring after expiry seconds",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := util.ParseExpiry(args[1])
			if err != nil {
				return err
			}
			value, err := readValue(args, 2)
			if err != nil {
				return err
			}
			ok, resp, err := rpcStore.Set(context.Background(), args[0], expiry, value)
			if err != nil {
				return err
			}
			result("set", ok, resp)
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [key] [expiry|none] [value|-]",
		Short: "Updates an existing key",
		Long:  "Updates an existing key. An expiry of 0 keeps the current expiry, none removes it. Without value the stored value is kept.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiry, err := util.ParseExpiry(args[1])
			if err != nil {
				return err
			}
			value, err := readValue(args, 2)
			if err != nil {
				return err
			}
			ok, resp, err := rpcStore.Update(context.Background(), args[0], expiry, value)
			if err != nil {
				return err
			}
			result("update", ok, resp)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, resp, err := rpcStore.Delete(context.Background(), args[0])
			if err != nil {
				return err
			}
			result("delete", ok, resp)
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [expiry|none]",
		Short: "Increments a counter (counter stores only)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiryArg string
			if len(args) == 2 {
				expiryArg = args[1]
			}
			expiry, err := util.ParseExpiry(expiryArg)
			if err != nil {
				return err
			}
			value, ok, err := rpcStore.Incr(context.Background(), args[0], expiry)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, value=%d, ok=%t\n", args[0], value, ok)
			return nil
		},
	}
)
