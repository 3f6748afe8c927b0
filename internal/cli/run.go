package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tiroq/vodkeeper/internal/applog"
	"github.com/tiroq/vodkeeper/internal/capture"
	"github.com/tiroq/vodkeeper/internal/config"
	"github.com/tiroq/vodkeeper/internal/disk"
	"github.com/tiroq/vodkeeper/internal/ipc"
	"github.com/tiroq/vodkeeper/internal/notify"
	"github.com/tiroq/vodkeeper/internal/pidfile"
	"github.com/tiroq/vodkeeper/internal/probe"
	"github.com/tiroq/vodkeeper/internal/statusfeed"
	"github.com/tiroq/vodkeeper/internal/supervisor"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the archiver in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, opts.version)
		},
	}
}

func runDaemon(parent context.Context, cfg *config.Config, version string) error {
	log, err := applog.New(applog.Options{
		Name:  "vodkeeper",
		Level: cfg.LogLevel,
		Path:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Close()

	log.Info("starting vodkeeper", "version", version, "pid", os.Getpid(),
		"streamer", cfg.StreamerName, "output", cfg.OutputDirectory,
		"webhook", applog.RedactURL(cfg.WebhookURL))

	pidPath := pidfile.Path(cfg.StateDir, cfg.StreamerName)
	pf, err := pidfile.New(pidPath)
	if err != nil {
		log.Error("another instance may already be running", "pid_file", pidPath, "error", err)
		return err
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
	}()

	if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	webhook := notify.NewWebhook(cfg.WebhookURL, log.Named("notify"))
	var notifier notify.Notifier = webhook
	var ctrlOpts []supervisor.Option

	if cfg.StatusListenAddr != "" {
		hub := statusfeed.NewHub(log.Named("feed"))
		notifier = notify.Multi{webhook, hub}
		ctrlOpts = append(ctrlOpts, supervisor.WithSnapshotSink(hub))
		go func() {
			if err := hub.Serve(ctx, cfg.StatusListenAddr); err != nil {
				log.Error("status feed stopped", "error", err)
			}
		}()
	}

	capturer := capture.NewStreamlink(capture.Config{
		BinaryPath: cfg.StreamlinkPath,
		ExtraArgs:  cfg.StreamlinkArgs,
		StreamURL:  cfg.StreamURL(),
		Quality:    cfg.Quality,
		StopGrace:  cfg.StopGrace(),
	}, log.Named("capture"))
	if err := capturer.CheckBinary(); err != nil {
		log.Warn("streamlink check failed, recordings will fail until it is installed", "error", err)
	}

	prober := probe.NewStreamlink(probe.Config{
		BinaryPath: cfg.StreamlinkPath,
		StreamURL:  cfg.StreamURL(),
		Quality:    cfg.Quality,
		Timeout:    cfg.ProbeTimeout(),
	}, log.Named("probe"))

	guardian := disk.NewGuardian(disk.Config{
		Root:        cfg.OutputDirectory,
		ThresholdGB: cfg.DiskSpaceThresholdGB,
		Retention:   cfg.Retention(),
	}, notifier, log.Named("disk"))

	commands, err := ipc.WatchCommands(ctx, cfg.StateDir, log.Named("ipc"))
	if err != nil {
		log.Warn("command channel unavailable", "error", err)
	}

	ctrl := supervisor.NewController(supervisor.Config{
		Version:        version,
		Streamer:       cfg.StreamerName,
		StreamURL:      cfg.StreamURL(),
		Quality:        cfg.Quality,
		OutputRoot:     cfg.OutputDirectory,
		MaxDuration:    cfg.MaxRecordingDuration(),
		PollInterval:   cfg.PollInterval(),
		StatusInterval: cfg.StatusInterval(),
		StateDir:       cfg.StateDir,
	}, supervisor.Deps{
		Prober:   prober,
		Capturer: capturer,
		Disk:     guardian,
		Notifier: notifier,
	}, log.Named("supervisor"), ctrlOpts...)

	err = ctrl.Run(ctx, commands)
	if errors.Is(err, supervisor.ErrDiskExhausted) {
		log.Error("exiting: free space below threshold", "threshold_gb", cfg.DiskSpaceThresholdGB)
		return err
	}
	log.Info("shut down cleanly")
	return err
}
