package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/sr"
)

var (
	showIncludeDeleted bool
	showBrief          bool
)

func init() {
	showCmd.Flags().BoolVarP(&showIncludeDeleted, "include-deleted", "d", false,
		"include deleted shard ranges in output")
	showCmd.Flags().BoolVarP(&showBrief, "brief", "b", false,
		"show only shard range bounds in output")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <container-db>",
	Short: "Print shard range data",
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

		ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{IncludeDeleted: showIncludeDeleted})
		if err != nil {
			return err
		}
		if len(ranges) == 0 {
			fmt.Fprintln(os.Stderr, "No shard data found.")
			return nil
		}
		fmt.Fprintln(os.Stderr, "Existing shard ranges:")
		printShardRanges(ranges, showBrief)
		return nil
	},
}

func printShardRanges(ranges []*sr.ShardRange, brief bool) {
	var out any = ranges
	if brief {
		bounds := make([][2]string, 0, len(ranges))
		for _, rng := range ranges {
			bounds = append(bounds, [2]string{rng.Lower, rng.Upper})
		}
		out = bounds
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render shard ranges: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
