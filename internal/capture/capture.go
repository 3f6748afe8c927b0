// Package capture records a live stream to a file by supervising an external
// downloader process.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrCaptureStopped wraps the context error when a capture is terminated from
// the outside (deadline or cancellation) rather than ending on its own.
var ErrCaptureStopped = errors.New("capture stopped")

// Capturer records until the stream ends, the process fails, or ctx is done.
// It must leave whatever data was written at destination.
type Capturer interface {
	Capture(ctx context.Context, destination string) error
}

// Config configures the streamlink capturer.
type Config struct {
	BinaryPath string        // default "streamlink"
	ExtraArgs  []string      // e.g. --twitch-disable-ads
	StreamURL  string        // channel URL
	Quality    string        // streamlink quality selector
	StopGrace  time.Duration // SIGTERM→SIGKILL delay, default 10s
}

// Streamlink runs `streamlink [args] <url> <quality> -o <destination>`.
type Streamlink struct {
	cfg    Config
	logger hclog.Logger
}

// NewStreamlink creates a capturer with the given config.
func NewStreamlink(cfg Config, logger hclog.Logger) *Streamlink {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "streamlink"
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 10 * time.Second
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Streamlink{cfg: cfg, logger: logger}
}

// CheckBinary verifies the streamlink binary can be found.
func (s *Streamlink) CheckBinary() error {
	if _, err := exec.LookPath(s.cfg.BinaryPath); err != nil {
		return fmt.Errorf("%s not found. Install with: pip install streamlink", s.cfg.BinaryPath)
	}
	return nil
}

func (s *Streamlink) buildArgs(destination string) []string {
	args := make([]string, 0, len(s.cfg.ExtraArgs)+4)
	args = append(args, s.cfg.ExtraArgs...)
	return append(args, s.cfg.StreamURL, s.cfg.Quality, "-o", destination)
}

// Capture blocks until streamlink exits. When ctx is done the whole process
// group receives SIGTERM, followed by SIGKILL once StopGrace has passed; the
// returned error then wraps both ErrCaptureStopped and ctx.Err().
func (s *Streamlink) Capture(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureStopped, err)
	}

	cmd := exec.Command(s.cfg.BinaryPath, s.buildArgs(destination)...)
	setProcessGroup(cmd)

	// Keep streamlink's own output next to the recording for diagnostics.
	logPath := destination + ".streamlink.log"
	if logFile, err := os.Create(logPath); err == nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		defer logFile.Close()
	} else {
		s.logger.Warn("cannot create streamlink log, its output is discarded", "path", logPath, "error", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.cfg.BinaryPath, err)
	}
	s.logger.Debug("capture process started", "pid", cmd.Process.Pid, "destination", destination)

	waitDone := make(chan struct{})
	var mu sync.Mutex
	var stopped bool
	go func() {
		select {
		case <-ctx.Done():
		case <-waitDone:
			return
		}
		mu.Lock()
		stopped = true
		mu.Unlock()

		s.logger.Info("terminating capture process", "pid", cmd.Process.Pid, "reason", ctx.Err())
		_ = signalGroup(cmd, false)

		timer := time.NewTimer(s.cfg.StopGrace)
		defer timer.Stop()
		select {
		case <-waitDone:
		case <-timer.C:
			s.logger.Warn("capture process ignored SIGTERM, killing", "pid", cmd.Process.Pid)
			_ = signalGroup(cmd, true)
		}
	}()

	err := cmd.Wait()
	close(waitDone)

	mu.Lock()
	wasStopped := stopped
	mu.Unlock()
	if wasStopped {
		return fmt.Errorf("%w: %w", ErrCaptureStopped, ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s exited: %w", s.cfg.BinaryPath, err)
	}
	return nil
}
