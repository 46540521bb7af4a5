package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/sharding"
)

var (
	compactYes       bool
	shrinkThreshold  int64
	expansionLimit   int64
	maxShrinkingFlag int
	maxExpandingFlag int
)

func init() {
	compactCmd.Flags().BoolVarP(&compactYes, "yes", "y", false,
		"apply shard range changes without prompting")
	compactCmd.Flags().Int64Var(&shrinkThreshold, "shrink-threshold", 0,
		"the number of objects below which a shard can qualify for shrinking")
	compactCmd.Flags().Int64Var(&expansionLimit, "expansion-limit", 0,
		"maximum number of objects for an expanding shard after compaction has completed")
	compactCmd.Flags().IntVar(&maxShrinkingFlag, "max-shrinking", 0,
		"maximum number of shards to shrink into each expanding shard; "+
			"values greater than 1 may cause temporary gaps in object listings "+
			"until all selected shards have shrunk")
	compactCmd.Flags().IntVar(&maxExpandingFlag, "max-expanding", 0,
		"maximum number of shards to expand; defaults to unlimited")
	rootCmd.AddCommand(compactCmd)
}

var compactCmd = &cobra.Command{
	Use:   "compact <container-db>",
	Short: "Compact shard ranges with fewer than shrink-threshold objects",
	Long: "Merge runs of small shard ranges back into a neighboring acceptor " +
		"range. This command only works on root containers that have already " +
		"been sharded.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vals, err := resolveValues(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("shrink-threshold") {
			if vals.ShrinkThreshold, err = positiveInt64("shrink-threshold", shrinkThreshold); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("expansion-limit") {
			if vals.ExpansionLimit, err = positiveInt64("expansion-limit", expansionLimit); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("max-shrinking") {
			if vals.MaxShrinking, err = positiveInt("max-shrinking", maxShrinkingFlag); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("max-expanding") {
			if vals.MaxExpanding, err = positiveInt("max-expanding", maxExpandingFlag); err != nil {
				return err
			}
		}

		store, err := openStore(ctx, args[0])
		if err != nil {
			return err
		}
		defer store.Close()

		sequences, err := sharding.PlanCompaction(ctx, store, vals)
		if err != nil {
			return err
		}
		action := sharding.PlanCompact(sequences, compactYes)
		if action.NothingToDo {
			fmt.Println("No shards identified for compaction.")
			return nil
		}
		if action.NeedsConfirmation {
			for _, seq := range sequences {
				fmt.Printf("Donor shard range(s) with total of %d objects:\n", seq.DonorObjectCount())
				for _, donor := range seq.Donors() {
					printShardRange(donor, 1)
				}
				fmt.Println("can be compacted into acceptor shard range:")
				printShardRange(seq.Acceptor(), 1)
			}
			fmt.Println("Once applied these changes will result in shard range " +
				"compaction the next time the sharder runs.")
			choice, err := promptChoice("Do you want to apply these changes? [y/N] ")
			if err != nil {
				return err
			}
			if choice != "y" {
				fmt.Println("No changes applied")
				return nil
			}
		}

		if err := sharding.ApplySequences(ctx, store, sequences, vals); err != nil {
			return err
		}
		fmt.Printf("Updated %d shard sequences for compaction.\n", len(sequences))
		fmt.Println("Run the container replicator to replicate the changes to other nodes.")
		fmt.Println("Run the container sharder on all nodes to compact shards.")
		return nil
	},
}

func printShardRange(rng *sr.ShardRange, level int) {
	indent := ""
	for i := 0; i < level; i++ {
		indent += "  "
	}
	fmt.Printf("%s%q\n", indent, rng.Name)
	fmt.Printf("%s  objects: %-9d lower: %q\n", indent, rng.ObjectCount, rng.Lower)
	fmt.Printf("%s  state: %-9s   upper: %q\n", indent, rng.State, rng.Upper)
}
