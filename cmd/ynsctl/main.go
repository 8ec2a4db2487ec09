package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"YakNS/internal/logger"
)

func main() {
	logger.Init()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	node     string // node is the ynsd HTTP address for remote commands
	logLevel string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ynsctl",
		Short: "Inspect and operate a YakNS name service",
		Long: `ynsctl computes name hashes, bootstraps and snapshots a local data
directory, and queries a running ynsd over HTTP.

Examples:
  ynsctl namehash alice.yak
  ynsctl bootstrap --data ./data --authority 0x...a1
  ynsctl resolve alice.yak addr --node 127.0.0.1:8080
  ynsctl snapshot export --data ./data -o yak.snap`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, ok := logger.ParseLevel(opts.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			logger.SetLevel(level)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.node, "node", "127.0.0.1:8080", "ynsd HTTP address")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newNamehashCmd(),
		newLabelhashCmd(),
		newBootstrapCmd(),
		newSnapshotCmd(opts),
		newStatusCmd(opts),
		newLookupCmd(opts),
		newResolveCmd(opts),
		newReverseCmd(opts),
		newEventsCmd(opts),
	)

	return root
}
