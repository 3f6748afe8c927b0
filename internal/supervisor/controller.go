// Package supervisor runs the archiver loop: it polls stream availability,
// drives the recording state machine, supervises the capture process and
// keeps the disk healthy while doing so.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/tiroq/vodkeeper/internal/capture"
	"github.com/tiroq/vodkeeper/internal/disk"
	"github.com/tiroq/vodkeeper/internal/fileutil"
	"github.com/tiroq/vodkeeper/internal/ipc"
	"github.com/tiroq/vodkeeper/internal/notify"
	"github.com/tiroq/vodkeeper/internal/probe"
	"github.com/tiroq/vodkeeper/internal/statemachine"
)

// ErrDiskExhausted ends Run when free space falls below the threshold.
var ErrDiskExhausted = errors.New("disk space exhausted")

// DiskGuard is the subset of disk.Guardian the controller needs.
type DiskGuard interface {
	Check(ctx context.Context) (disk.Status, error)
	Sweep(ctx context.Context) disk.SweepResult
}

// SnapshotSink receives a status snapshot after every tick.
type SnapshotSink interface {
	Publish(s *ipc.StatusSnapshot)
}

// Config is the controller's slice of the application config.
type Config struct {
	Version        string
	Streamer       string
	StreamURL      string
	Quality        string
	OutputRoot     string
	MaxDuration    time.Duration
	PollInterval   time.Duration
	StatusInterval time.Duration
	StateDir       string // status.json destination, empty to skip
}

// Deps are the collaborators the controller drives.
type Deps struct {
	Prober   probe.Prober
	Capturer capture.Capturer
	Disk     DiskGuard
	Notifier notify.Notifier
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSnapshotSink adds a sink for per-tick status snapshots.
func WithSnapshotSink(s SnapshotSink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, s) }
}

type captureTask struct {
	cancel      context.CancelFunc
	done        chan struct{}
	err         error
	deadlineHit bool
}

// Controller owns the session lifecycle. It is driven from a single goroutine
// (Run, or Tick in tests) and is not safe for concurrent use.
type Controller struct {
	cfg      Config
	deps     Deps
	logger   hclog.Logger
	now      func() time.Time
	sinks    []SnapshotSink
	sm       *statemachine.StateMachine
	active   *captureTask
	lastDisk disk.Status

	lastStatusAt time.Time
	lastOutcome  *statemachine.Outcome
	lastErr      string
}

// NewController creates a controller in the idle state. The status window
// starts at construction, so the first periodic status is one interval away.
func NewController(cfg Config, deps Deps, logger hclog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		sm:       statemachine.NewStateMachine(),
		lastDisk: disk.Status{Path: cfg.OutputRoot, Healthy: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastStatusAt = c.now()
	return c
}

// Run ticks every PollInterval until ctx is cancelled, a quit command
// arrives, or the disk runs out of space. Any active capture is stopped and
// reaped before Run returns. commands may be nil.
func (c *Controller) Run(ctx context.Context, commands <-chan ipc.Command) error {
	c.logger.Info("monitoring stream", "url", c.cfg.StreamURL, "quality", c.cfg.Quality,
		"poll_interval", c.cfg.PollInterval, "max_duration", c.cfg.MaxDuration)

	if err := c.safeTick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("shutdown requested")
			c.Shutdown(context.WithoutCancel(ctx))
			return nil

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			switch cmd {
			case ipc.CmdStatus:
				c.sendStatus(ctx)
			case ipc.CmdQuit:
				c.logger.Info("quit command received")
				c.Shutdown(context.WithoutCancel(ctx))
				return nil
			}

		case <-ticker.C:
			if err := c.safeTick(ctx); err != nil {
				return err
			}
		}
	}
}

// safeTick runs one tick and turns a panic into a log line. Only
// ErrDiskExhausted is returned.
func (c *Controller) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.lastErr = fmt.Sprintf("panic: %v", r)
			c.logger.Error("panic in tick", "panic", r, "stack", string(debug.Stack()))
			err = nil
		}
	}()

	err = c.Tick(ctx)
	if err != nil && !errors.Is(err, ErrDiskExhausted) {
		c.lastErr = err.Error()
		c.logger.Error("tick failed", "error", err)
		return nil
	}
	return err
}

// Tick performs one pass: disk check, retention sweep, capture completion,
// availability probe, periodic status, snapshot.
func (c *Controller) Tick(ctx context.Context) error {
	st, err := c.deps.Disk.Check(ctx)
	if err != nil {
		c.logger.Error("disk check failed", "error", err)
	}
	c.lastDisk = st
	if !st.Healthy {
		c.abortForLowDisk(ctx)
		c.publish()
		return ErrDiskExhausted
	}

	c.deps.Disk.Sweep(ctx)

	justFinished := false
	if c.active != nil {
		select {
		case <-c.active.done:
			out := c.finishCapture("")
			c.deps.Notifier.Notify(ctx, summaryMessage(out))
			justFinished = true
		default:
		}
	}

	if !justFinished && !c.sm.IsRecording() {
		online := c.deps.Prober.IsOnline(ctx)
		if c.sm.ProcessProbe(online) {
			c.startCapture(ctx)
		}
	}

	if c.now().Sub(c.lastStatusAt) >= c.cfg.StatusInterval {
		c.sendStatus(ctx)
	}

	c.publish()
	return nil
}

// Shutdown stops and reaps any active capture and reports it as
// interrupted. It is safe to call when idle.
func (c *Controller) Shutdown(ctx context.Context) {
	if c.active != nil {
		c.logger.Info("stopping active recording before exit")
		out := c.stopActive(statemachine.ReasonShutdown)
		c.deps.Notifier.Notify(ctx, summaryMessage(out))
	}
	c.publish()
}

func (c *Controller) startCapture(ctx context.Context) {
	start := c.now()
	path, err := fileutil.OutputPath(c.cfg.OutputRoot, start)
	if err != nil {
		c.lastErr = err.Error()
		c.logger.Error("cannot prepare output path", "error", err)
		return
	}

	session := statemachine.NewSession(start, path)
	if err := c.sm.StartRecording(session); err != nil {
		c.logger.Error("refusing to start recording", "error", err)
		return
	}
	c.logger.Info("stream is live, recording started", "session", session.ID, "output", path)
	c.deps.Notifier.Notify(ctx, notify.RecordingStarted(c.cfg.StreamURL, c.cfg.Quality))

	// The capture outlives the tick that started it, so it is not derived
	// from ctx; Shutdown cancels it explicitly.
	capCtx, cancel := context.WithTimeout(context.Background(), c.cfg.MaxDuration)
	task := &captureTask{cancel: cancel, done: make(chan struct{})}
	c.active = task

	go func() {
		defer close(task.done)
		defer func() {
			if r := recover(); r != nil {
				task.err = fmt.Errorf("capture panic: %v", r)
			}
			task.deadlineHit = errors.Is(capCtx.Err(), context.DeadlineExceeded)
		}()
		task.err = c.deps.Capturer.Capture(capCtx, path)
	}()
}

// stopActive cancels the capture, waits for it to be reaped and records the
// outcome under reason.
func (c *Controller) stopActive(reason statemachine.StopReason) statemachine.Outcome {
	c.active.cancel()
	<-c.active.done
	return c.finishCapture(reason)
}

// finishCapture closes the session of an exited capture. An empty reason is
// derived from how the capture ended.
func (c *Controller) finishCapture(reason statemachine.StopReason) statemachine.Outcome {
	task := c.active
	c.active = nil
	task.cancel()

	if reason == "" {
		switch {
		case task.deadlineHit || errors.Is(task.err, context.DeadlineExceeded):
			reason = statemachine.ReasonMaxDuration
		case task.err != nil:
			reason = statemachine.ReasonCaptureFailed
		default:
			reason = statemachine.ReasonStreamEnded
		}
	}
	var captureErr error
	if reason == statemachine.ReasonCaptureFailed {
		captureErr = task.err
	}

	session, _ := c.sm.Session()
	out, err := c.sm.StopRecording(c.now(), fileutil.FileSize(session.OutputPath), reason, captureErr)
	if err != nil {
		// Capture task without a session; nothing to report.
		c.logger.Error("capture finished without a session", "error", err)
		return out
	}

	if out.Succeeded {
		c.logger.Info("recording stopped", "session", out.SessionID, "reason", out.Reason,
			"duration", notify.FormatDuration(out.Duration), "size", notify.FormatSize(out.FileSizeBytes))
	} else {
		c.lastErr = fmt.Sprint(out.Err)
		c.logger.Error("recording failed", "session", out.SessionID, "error", out.Err,
			"duration", notify.FormatDuration(out.Duration))
	}

	c.writeMetadata(out)
	c.lastOutcome = &out
	return out
}

func (c *Controller) abortForLowDisk(ctx context.Context) {
	c.logger.Error("free space below threshold, stopping", "free_gb", c.lastDisk.FreeGB)
	if c.active == nil {
		c.deps.Notifier.Notify(ctx, notify.LowDiskFatal())
		return
	}
	out := c.stopActive(statemachine.ReasonLowDisk)
	c.deps.Notifier.Notify(context.WithoutCancel(ctx), notify.LowDiskStopped(out.OutputPath, out.Duration, out.FileSizeBytes))
}

func (c *Controller) sendStatus(ctx context.Context) {
	c.deps.Notifier.Notify(ctx, notify.StatusUpdate(c.sm.StreamOnline(), c.sm.IsRecording()))
	c.lastStatusAt = c.now()
}

func (c *Controller) writeMetadata(out statemachine.Outcome) {
	meta := &fileutil.RecordingMetadata{
		Version:       c.cfg.Version,
		SessionID:     out.SessionID,
		Streamer:      c.cfg.Streamer,
		StreamURL:     c.cfg.StreamURL,
		Quality:       c.cfg.Quality,
		StartedAt:     out.StartTime,
		StoppedAt:     out.EndTime,
		Duration:      notify.FormatDuration(out.Duration),
		DurationMs:    out.Duration.Milliseconds(),
		FileSizeBytes: out.FileSizeBytes,
		StopReason:    string(out.Reason),
		Succeeded:     out.Succeeded,
		OutputFile:    out.OutputPath,
	}
	if out.Err != nil {
		meta.Error = out.Err.Error()
	}
	if err := fileutil.WriteMetadata(out.OutputPath, meta); err != nil {
		c.logger.Warn("failed to write recording metadata", "path", out.OutputPath, "error", err)
	}
}

// Snapshot describes the controller's current state.
func (c *Controller) Snapshot() *ipc.StatusSnapshot {
	s := &ipc.StatusSnapshot{
		Streamer:        c.cfg.Streamer,
		State:           string(c.sm.State()),
		StreamOnline:    c.sm.StreamOnline(),
		FreeGB:          c.lastDisk.FreeGB,
		DiskHealthy:     c.lastDisk.Healthy,
		SessionsStarted: c.sm.SessionsStarted(),
		LastError:       c.lastErr,
		PID:             os.Getpid(),
		Timestamp:       c.now(),
	}
	if session, ok := c.sm.Session(); ok {
		since := session.StartTime
		s.SessionID = session.ID
		s.OutputPath = session.OutputPath
		s.RecordingSince = &since
	}
	if o := c.lastOutcome; o != nil {
		s.LastOutcome = &ipc.OutcomeSummary{
			SessionID:     o.SessionID,
			OutputPath:    o.OutputPath,
			EndedAt:       o.EndTime,
			Duration:      notify.FormatDuration(o.Duration),
			FileSizeBytes: o.FileSizeBytes,
			Reason:        string(o.Reason),
			Succeeded:     o.Succeeded,
		}
		if o.Err != nil {
			s.LastOutcome.Error = o.Err.Error()
		}
	}
	return s
}

// State exposes the recording state for callers and tests.
func (c *Controller) State() statemachine.State {
	return c.sm.State()
}

func (c *Controller) publish() {
	snap := c.Snapshot()
	if c.cfg.StateDir != "" {
		if err := ipc.WriteStatus(c.cfg.StateDir, snap); err != nil {
			c.logger.Warn("failed to write status", "error", err)
		}
	}
	for _, sink := range c.sinks {
		sink.Publish(snap)
	}
}

func summaryMessage(out statemachine.Outcome) string {
	switch out.Reason {
	case statemachine.ReasonMaxDuration:
		return notify.MaxDurationReached(out.OutputPath, out.Duration, out.FileSizeBytes)
	case statemachine.ReasonCaptureFailed:
		return notify.RecordingFailed(out.OutputPath, out.Err, out.Duration, out.FileSizeBytes)
	case statemachine.ReasonShutdown:
		return notify.RecordingInterrupted(out.OutputPath, out.Duration, out.FileSizeBytes)
	case statemachine.ReasonLowDisk:
		return notify.LowDiskStopped(out.OutputPath, out.Duration, out.FileSizeBytes)
	default:
		return notify.RecordingStopped(out.OutputPath, out.Duration, out.FileSizeBytes)
	}
}
