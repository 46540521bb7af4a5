package main

import (
	"fmt"

	"github.com/shard-ranges/shrd/pkg"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shrd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shrd %s\n", pkg.ShrdVersionRevision)
	},
}
