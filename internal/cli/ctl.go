package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiroq/vodkeeper/internal/config"
	"github.com/tiroq/vodkeeper/internal/ipc"
	"github.com/tiroq/vodkeeper/internal/pidfile"
)

func newCtlCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ctl <status|quit>",
		Short: "Send a command to the running archiver",
		Long: `Send a command to the running archiver.

  status  post a status update to the webhook now
  quit    stop any active recording and shut down`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(ipc.CmdStatus), string(ipc.CmdQuit)},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := ipc.ParseCommand(args[0])
			if !ok {
				return fmt.Errorf("unknown command %q", args[0])
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return sendCommand(cmd, cfg, c)
		},
	}
}

func sendCommand(cmd *cobra.Command, cfg *config.Config, c ipc.Command) error {
	pidPath := pidfile.Path(cfg.StateDir, cfg.StreamerName)
	if _, running, err := pidfile.Read(pidPath); err != nil || !running {
		return fmt.Errorf("archiver for %s is not running", cfg.StreamerName)
	}
	if err := ipc.WriteCommand(cfg.StateDir, c); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %q\n", c)
	return nil
}
