// Package cli wires the vodkeeper commands together.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tiroq/vodkeeper/internal/config"
)

type rootOptions struct {
	configPath string
	version    string
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:   "vodkeeper",
		Short: "Archive a live stream to disk whenever it is online",
		Long: `vodkeeper watches a single streamer and records every broadcast with
streamlink. It keeps the recordings volume healthy (low-space stop and
retention sweep) and reports to a Discord-compatible webhook.

Examples:
  # Run the archiver in the foreground
  vodkeeper run --config /etc/vodkeeper/config.json

  # Ask the running archiver for a status update
  vodkeeper ctl status`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to config file")

	root.AddCommand(
		newRunCmd(opts),
		newStatusCmd(opts),
		newCtlCmd(opts),
		newDoctorCmd(opts),
	)
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}
