package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/sharding"
)

func init() {
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find <container-db> [rows-per-shard]",
	Short: "Find and display shard ranges",
	Long: "Scan the container and print shard ranges of at most rows-per-shard " +
		"objects each. The container is not modified; the output may be " +
		"redirected to a file for later use by the replace sub-command.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vals, err := resolveValues(cmd)
		if err != nil {
			return err
		}
		rowsPerShard := vals.RowsPerShard
		if len(args) == 2 {
			rowsPerShard, err = strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return shrderror.Newf(shrderror.SHRD_INPUT, "rows-per-shard: %v", err)
			}
		}
		if rowsPerShard, err = positiveInt64("rows-per-shard", rowsPerShard); err != nil {
			return err
		}

		store, err := openStore(ctx, args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		records, elapsed, err := sharding.Find(ctx, store, rowsPerShard)
		if err != nil {
			return err
		}
		out, err := sr.SerializeRecords(records)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		fmt.Fprintf(os.Stderr, "Found %d ranges in %gs (total object count %d)\n",
			len(records), elapsed.Seconds(), sharding.TotalObjectCount(records))
		return nil
	},
}
