// shrd manages the shard ranges of a container database: discovering
// candidate split points, replacing the stored ranges, enabling
// sharding and compacting already split ranges back together. It must
// only be used on one replica of a container database; the
// modifications it makes are copied to other replicas by the normal
// replication processes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shard-ranges/shrd/cdb/sqlitecdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

var (
	cfgPath  string
	logLevel string
	verbose  int
)

var rootCmd = &cobra.Command{
	Use:   "shrd <sub-command> <container-db> [flags]",
	Short: "shrd",
	Long:  "Container namespace shard range manager",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return shrdlog.UpdateZeroLogLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase output verbosity")
}

// resolveValues layers the optional config file over defaults; the
// per-command flag overrides are applied by each command on the
// result.
func resolveValues(cmd *cobra.Command) (config.Values, error) {
	vals, err := config.Resolve(cfgPath)
	if err != nil {
		return vals, err
	}
	if !cmd.Flags().Changed("log-level") && vals.LogLevel != "" {
		if err := shrdlog.UpdateZeroLogLevel(vals.LogLevel); err != nil {
			return vals, err
		}
	}
	return vals, nil
}

func openStore(ctx context.Context, path string) (*sqlitecdb.SQLiteCDB, error) {
	store, err := sqlitecdb.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := store.GetInfo(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Loaded container store for %s.\n", info.Path())
	return store, nil
}

func positiveInt64(name string, val int64) (int64, error) {
	if val <= 0 {
		return 0, shrderror.Newf(shrderror.SHRD_INPUT, "%s must be > 0, got %d", name, val)
	}
	return val, nil
}

func positiveInt(name string, val int) (int, error) {
	if val <= 0 {
		return 0, shrderror.Newf(shrderror.SHRD_INPUT, "%s must be > 0, got %d", name, val)
	}
	return val, nil
}

// promptChoice renders a prompt on stdout and reads one line from
// stdin. The decision about whether to prompt at all is made by the
// pure planning functions; this is only the I/O.
func promptChoice(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", shrderror.Newf(shrderror.SHRD_ABORTED, "failed to read choice: %v", err)
	}
	return strings.TrimSpace(line), nil
}

var errAborted = shrderror.New(shrderror.SHRD_ABORTED, "no changes applied")

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(shrderror.ExitCode(err))
	}
}
