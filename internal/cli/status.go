package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiroq/vodkeeper/internal/config"
	"github.com/tiroq/vodkeeper/internal/ipc"
	"github.com/tiroq/vodkeeper/internal/pidfile"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running archiver",
		Long: `Print the last status snapshot written by the archiver.

Examples:
  vodkeeper status
  vodkeeper status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), cfg, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the raw snapshot as JSON")
	return cmd
}

func printStatus(w io.Writer, cfg *config.Config, asJSON bool) error {
	pid, running, pidErr := pidfile.Read(pidfile.Path(cfg.StateDir, cfg.StreamerName))

	snap, err := ipc.ReadStatus(cfg.StateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no status found in %s, is the archiver running?", cfg.StateDir)
		}
		return fmt.Errorf("read status: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	daemon := "not running"
	if pidErr == nil && running {
		daemon = fmt.Sprintf("running (PID %d)", pid)
	}
	online := "offline"
	if snap.StreamOnline {
		online = "online"
	}

	fmt.Fprintf(w, "Daemon:    %s\n", daemon)
	fmt.Fprintf(w, "Streamer:  %s (%s)\n", snap.Streamer, online)
	fmt.Fprintf(w, "State:     %s\n", snap.State)
	if snap.RecordingSince != nil {
		fmt.Fprintf(w, "Recording: %s (since %s, %s)\n", snap.OutputPath,
			snap.RecordingSince.Format(time.DateTime), snap.Timestamp.Sub(*snap.RecordingSince).Round(time.Second))
	}
	fmt.Fprintf(w, "Disk:      %.2f GB free", snap.FreeGB)
	if !snap.DiskHealthy {
		fmt.Fprint(w, " (LOW)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sessions:  %d since start\n", snap.SessionsStarted)
	if o := snap.LastOutcome; o != nil {
		fmt.Fprintf(w, "Last:      %s, %s, %s\n", o.OutputPath, o.Reason, o.Duration)
	}
	if snap.LastError != "" {
		fmt.Fprintf(w, "Error:     %s\n", snap.LastError)
	}
	fmt.Fprintf(w, "Updated:   %s\n", snap.Timestamp.Format(time.DateTime))
	return nil
}
