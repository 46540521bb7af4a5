package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/pkg/sharding"
)

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false,
		"delete existing shard ranges; no questions asked")
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <container-db>",
	Short: "Delete all existing shard ranges from the container",
	Args:  cobra.ExactArgs(1),
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

		if err := confirmDelete(ctx, store, deleteForce); err != nil {
			return err
		}
		deleted, err := sharding.DeleteShardRanges(ctx, store, vals)
		if err != nil {
			return err
		}
		if deleted > 0 {
			fmt.Printf("Deleted %d existing shard ranges.\n", deleted)
		}
		return nil
	},
}
