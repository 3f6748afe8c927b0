package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/tiroq/vodkeeper/internal/autoupdate"
	"github.com/tiroq/vodkeeper/internal/capture"
	"github.com/tiroq/vodkeeper/internal/config"
	"github.com/tiroq/vodkeeper/internal/disk"
	"github.com/tiroq/vodkeeper/internal/notify"
	"github.com/tiroq/vodkeeper/internal/validation"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var sendTest, checkUpdates bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and environment",
		Long: `Validate the config file, look for streamlink, check that the output
directory is writable and has enough free space. With --send-test a test
message is posted to the webhook. With --check-updates GitHub is asked for a
newer vodkeeper release.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), opts, sendTest, checkUpdates)
		},
	}
	cmd.Flags().BoolVar(&sendTest, "send-test", false, "post a test message to the webhook")
	cmd.Flags().BoolVar(&checkUpdates, "check-updates", false, "look for a newer release on GitHub")
	return cmd
}

type check struct {
	name string
	err  error
}

func runDoctor(ctx context.Context, w io.Writer, opts *rootOptions, sendTest, checkUpdates bool) error {
	cfg, err := config.Load(opts.configPath)
	report(w, check{"config " + opts.configPath, err})
	if err != nil {
		return fmt.Errorf("doctor found problems")
	}

	logger := hclog.New(&hclog.LoggerOptions{Name: "doctor", Level: hclog.Warn, Output: io.Discard})
	checks := []check{
		{"streamlink binary", capture.NewStreamlink(capture.Config{BinaryPath: cfg.StreamlinkPath}, logger).CheckBinary()},
		{"streamlink version and arguments", checkStreamlink(ctx, w, cfg)},
		{"output directory writable", checkWritable(cfg.OutputDirectory)},
		{"state directory writable", checkWritable(cfg.StateDir)},
		{"free disk space", checkFreeSpace(ctx, cfg, logger)},
	}
	if sendTest {
		// Webhook delivery never fails loudly, so this only proves the request went out.
		notify.NewWebhook(cfg.WebhookURL, logger).Notify(ctx, "vodkeeper doctor: test message for "+cfg.StreamerName)
		checks = append(checks, check{"webhook test message sent", nil})
	}
	if checkUpdates {
		checks = append(checks, check{"latest release", checkLatestRelease(ctx, w, opts.version)})
	}

	failed := false
	for _, c := range checks {
		report(w, c)
		failed = failed || c.err != nil
	}
	if failed {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}

func report(w io.Writer, c check) {
	if c.err != nil {
		fmt.Fprintf(w, "[FAIL] %s: %v\n", c.name, c.err)
		return
	}
	fmt.Fprintf(w, "[ OK ] %s\n", c.name)
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}

func checkFreeSpace(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	g := disk.NewGuardian(disk.Config{
		Root:        cfg.OutputDirectory,
		ThresholdGB: cfg.DiskSpaceThresholdGB,
		Retention:   cfg.Retention(),
	}, notify.Logging{Logger: logger}, logger)

	st, err := g.Check(ctx)
	if err != nil {
		return err
	}
	if !st.Healthy {
		return fmt.Errorf("only %.2f GB free, threshold is %.2f GB", st.FreeGB, cfg.DiskSpaceThresholdGB)
	}
	return nil
}

func checkStreamlink(ctx context.Context, w io.Writer, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, cfg.StreamlinkPath, "--version").Output()
	if err != nil {
		for _, fix := range validation.SuggestedFixes(err.Error()) {
			fmt.Fprintln(w, "       "+fix)
		}
		return err
	}

	res := validation.CheckStreamlinkHealth(string(out), cfg.StreamlinkArgs)
	for _, warn := range res.Warnings {
		fmt.Fprintln(w, "       warning: "+warn)
	}
	if !res.OK {
		for _, fix := range res.Fixes {
			fmt.Fprintln(w, "       "+fix)
		}
		return fmt.Errorf("%s", strings.Join(res.Issues, "; "))
	}
	return nil
}

func checkLatestRelease(ctx context.Context, w io.Writer, version string) error {
	avail, rel, err := autoupdate.NewUpdateChecker("tiroq", "vodkeeper", version).IsUpdateAvailable(ctx)
	if err != nil {
		return err
	}
	if avail {
		fmt.Fprintf(w, "       %s is available (running %s): %s\n", rel.TagName, version, rel.HTMLURL)
	}
	return nil
}
