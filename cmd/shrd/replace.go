package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/sharding"
)

var (
	replaceForce          bool
	replaceEnable         bool
	replaceTimeoutSeconds int
)

func init() {
	addReplaceFlags(replaceCmd)
	addReplaceFlags(findReplaceCmd)
	findReplaceCmd.Flags().IntVar(&enableTimeoutSeconds, "enable-timeout", 0,
		"DB timeout in seconds to use when enabling sharding")
	rootCmd.AddCommand(replaceCmd, findReplaceCmd)
}

func addReplaceFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&replaceForce, "force", "f", false,
		"delete existing shard ranges; no questions asked")
	cmd.Flags().BoolVar(&replaceEnable, "enable", false,
		"enable sharding after replacing shard ranges")
	cmd.Flags().IntVar(&replaceTimeoutSeconds, "replace-timeout", 0,
		"minimum DB timeout in seconds to use when replacing shard ranges")
}

var replaceCmd = &cobra.Command{
	Use:   "replace <container-db> <input-file>",
	Short: "Replace existing shard ranges from a file",
	Long: "Delete any shard ranges already in the container and insert the " +
		"ranges read from the input file, which must be in the format written " +
		"by the find sub-command. The operator is prompted before existing " +
		"ranges are deleted.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vals, err := resolveValues(cmd)
		if err != nil {
			return err
		}
		records, err := loadRecords(args[1])
		if err != nil {
			return err
		}
		store, err := openStore(ctx, args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		return runReplace(ctx, store, records, vals, 0)
	},
}

var findReplaceCmd = &cobra.Command{
	Use:   "find-and-replace <container-db> [rows-per-shard]",
	Short: "Find new shard ranges and replace the existing ones",
	Args:  cobra.RangeArgs(1, 2),
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
			return errors.Wrap(err, "range discovery failed")
		}
		// the scan that produced these records probably took a while;
		// give the write at least that long
		return runReplace(ctx, store, records, vals, elapsed)
	},
}

func loadRecords(path string) ([]sr.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_INPUT, "failed to open file %s: %v", path, err)
	}
	records, err := sr.ParseRecords(data)
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_INPUT, "failed to load valid shard range data: %v", err)
	}
	return records, nil
}

func runReplace(ctx context.Context, store cdb.Store, records []sr.Record, vals config.Values, minTimeout time.Duration) error {
	if replaceTimeoutSeconds != 0 {
		vals.ReplaceTimeout = time.Duration(replaceTimeoutSeconds) * time.Second
	}
	if err := confirmDelete(ctx, store, replaceForce); err != nil {
		return err
	}
	if verbose > 0 {
		fmt.Println("New shard ranges to be injected:")
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	ranges, err := sharding.ReplaceShardRanges(ctx, store, records, vals, minTimeout)
	if err != nil {
		return err
	}
	fmt.Printf("Injected %d shard ranges.\n", len(ranges))
	fmt.Println("Run the container replicator to replicate them to other nodes.")
	if replaceEnable {
		return runEnable(ctx, store, vals)
	}
	fmt.Println("Use the enable sub-command to enable sharding.")
	return nil
}

// confirmDelete renders the delete decision and, when confirmation is
// needed, loops on the operator's choice: show the existing ranges,
// delete them, or quit.
func confirmDelete(ctx context.Context, store cdb.Store, force bool) error {
	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	if err != nil {
		return err
	}
	state, err := store.DBState(ctx)
	if err != nil {
		return err
	}
	action := sharding.PlanDelete(ranges, state, force)
	if action.NothingToDo {
		fmt.Println("No shard ranges found to delete.")
		return nil
	}
	for action.NeedsConfirmation {
		for _, reason := range action.Reasons {
			fmt.Printf("WARNING: %s\n", reason)
		}
		choice, err := promptChoice("Do you want to show the existing ranges [s], " +
			"delete the existing ranges [yes] or quit without deleting [q]? ")
		if err != nil {
			return err
		}
		switch choice {
		case "s":
			printShardRanges(ranges, false)
		case "yes":
			return nil
		case "q":
			return errAborted
		default:
			fmt.Println("Please make a valid choice.")
			fmt.Println()
		}
	}
	return nil
}
