package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/cdb"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <container-db>",
	Short: "Print container store info",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := resolveValues(cmd); err != nil {
			return err
		}
		store, err := openStore(ctx, args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		enabled, err := cdb.ShardingEnabled(ctx, store)
		if err != nil {
			return err
		}
		fmt.Printf("Sharding enabled = %t\n", enabled)

		own, err := store.GetOwnShardRange(ctx, true)
		if err != nil {
			return err
		}
		if own == nil {
			fmt.Println("Own shard range: None")
		} else {
			out, err := json.MarshalIndent(own, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("Own shard range: %s\n", out)
		}

		state, err := store.DBState(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("db_state = %s\n", state)

		meta, err := store.GetMetadata(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Metadata:")
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", k, meta[k].Value)
		}
		return nil
	},
}
