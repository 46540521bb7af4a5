package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/sharding"
)

var enableTimeoutSeconds int

func init() {
	enableCmd.Flags().IntVar(&enableTimeoutSeconds, "enable-timeout", 0,
		"DB timeout in seconds to use when enabling sharding")
	rootCmd.AddCommand(enableCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable <container-db>",
	Short: "Enable sharding and move the container to the sharding state",
	Long: "Mark the container as ready for sharding. This does not shard the " +
		"container; it sets the state the sharding daemon keys off to start " +
		"the process. There is no supported way to revert it.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vals, err := resolveValues(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		return runEnable(ctx, store, vals)
	},
}

func runEnable(ctx context.Context, store cdb.Store, vals config.Values) error {
	if enableTimeoutSeconds != 0 {
		vals.EnableTimeout = time.Duration(enableTimeoutSeconds) * time.Second
	}
	res, err := sharding.EnableSharding(ctx, store, vals)
	if err != nil {
		return err
	}
	switch res.Action {
	case sharding.ActionEnabled:
		fmt.Printf("Container moved to state %q with epoch %s.\n", res.Own.State, res.Epoch)
	case sharding.ActionRepaired:
		fmt.Printf("Container already in state %q but missing epoch; given epoch %s.\n",
			res.Own.State, res.Epoch)
	case sharding.ActionNone:
		fmt.Printf("Container already in state %q with epoch %s.\n", res.Own.State, res.Epoch)
		fmt.Println("No action required.")
		return nil
	}
	fmt.Println("Run the container sharder on all nodes to shard the container.")
	return nil
}
