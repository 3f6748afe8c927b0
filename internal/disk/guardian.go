// Package disk keeps the recordings volume healthy: it checks free space
// against a low-water mark and sweeps recordings past their retention age.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/tiroq/vodkeeper/internal/notify"
)

const bytesPerGB = 1024 * 1024 * 1024

// Status represents free space on the output volume at one point in time.
type Status struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
	Healthy     bool    `json:"healthy"`
}

// UsageFunc reports filesystem usage for the volume holding path.
type UsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// Config configures a Guardian.
type Config struct {
	Root        string        // output directory
	ThresholdGB float64       // low-water mark
	Retention   time.Duration // files older than this are deleted
}

// Guardian runs the per-tick disk duties. It holds no state between calls
// beyond its configuration.
type Guardian struct {
	cfg      Config
	notifier notify.Notifier
	logger   hclog.Logger
	usage    UsageFunc
	now      func() time.Time
}

// Option customises a Guardian.
type Option func(*Guardian)

// WithUsageFunc replaces the gopsutil usage probe.
func WithUsageFunc(fn UsageFunc) Option {
	return func(g *Guardian) { g.usage = fn }
}

// WithClock replaces time.Now for retention decisions.
func WithClock(now func() time.Time) Option {
	return func(g *Guardian) { g.now = now }
}

// NewGuardian creates a Guardian for cfg.
func NewGuardian(cfg Config, notifier notify.Notifier, logger hclog.Logger, opts ...Option) *Guardian {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	g := &Guardian{
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		usage:    disk.UsageWithContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check measures free space. Below the threshold it logs and notifies a
// warning every time it is called. When usage cannot be read the volume is
// reported healthy together with the error, so a flaky statfs does not stop
// recording.
func (g *Guardian) Check(ctx context.Context) (Status, error) {
	st := Status{Path: g.cfg.Root, Healthy: true}

	u, err := g.usage(ctx, g.cfg.Root)
	if err != nil {
		return st, fmt.Errorf("disk usage for %s: %w", g.cfg.Root, err)
	}

	st.TotalGB = float64(u.Total) / bytesPerGB
	st.FreeGB = float64(u.Free) / bytesPerGB
	st.UsedPercent = u.UsedPercent
	st.Healthy = st.FreeGB >= g.cfg.ThresholdGB

	if !st.Healthy {
		g.logger.Warn(fmt.Sprintf("Low disk space. Only %.2f GB left.", st.FreeGB), "threshold_gb", g.cfg.ThresholdGB)
		g.notifier.Notify(ctx, notify.LowDiskSpace(st.FreeGB))
	}
	return st, nil
}

// SweepResult summarises one retention pass.
type SweepResult struct {
	Deleted []string
	Errors  int
}

// Sweep deletes every regular file under Root whose modification time is
// strictly before now-Retention. Files exactly at the cutoff are kept. Errors
// on individual entries are logged and skipped.
func (g *Guardian) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	cutoff := g.now().Add(-g.cfg.Retention)

	touched := map[string]bool{}
	walkErr := filepath.WalkDir(g.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == g.cfg.Root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			g.logger.Error("retention sweep: cannot read entry", "path", path, "error", err)
			res.Errors++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				g.logger.Error("retention sweep: stat failed", "path", path, "error", err)
				res.Errors++
			}
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				g.logger.Error("retention sweep: delete failed", "path", path, "error", err)
				res.Errors++
			}
			return nil
		}
		g.logger.Info("Deleted old recording: " + path)
		g.notifier.Notify(ctx, notify.DeletedOldRecording(path))
		res.Deleted = append(res.Deleted, path)
		touched[filepath.Dir(path)] = true
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipDir) {
		g.logger.Warn("retention sweep aborted", "error", walkErr)
	}

	// Only directories emptied by this pass are removed; a fresh day directory
	// may legitimately be empty while streamlink is still buffering.
	for dir := range touched {
		if dir != g.cfg.Root {
			removeIfEmpty(dir)
		}
	}
	return res
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}
