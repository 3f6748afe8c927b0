package ipc

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// settleDelay gives writers a moment to finish before the file is read.
const settleDelay = 50 * time.Millisecond

// WatchCommands delivers commands written to <dir>/cmd.txt until ctx is done.
// fsnotify is used when available, with a 1s modification-time poll as a
// safety net (and as the only mechanism when fsnotify cannot be set up).
func WatchCommands(ctx context.Context, dir string, logger hclog.Logger) (<-chan Command, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	// Drop anything left over from a previous run.
	_, _ = ReadCommand(dir)

	out := make(chan Command, 4)
	w := &commandWatcher{dir: dir, path: CommandPath(dir), out: out, logger: logger, lastCheck: time.Now()}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify not available, falling back to polling", "error", err)
		go w.poll(ctx, nil)
		return out, nil
	}
	if err := watcher.Add(dir); err != nil {
		logger.Warn("failed to watch command directory, falling back to polling", "error", err)
		_ = watcher.Close()
		go w.poll(ctx, nil)
		return out, nil
	}

	logger.Debug("command watcher started", "path", w.path)
	go w.poll(ctx, watcher)
	return out, nil
}

type commandWatcher struct {
	dir       string
	path      string
	out       chan<- Command
	logger    hclog.Logger
	lastCheck time.Time
}

// poll runs the watch loop. watcher may be nil for polling-only mode.
func (w *commandWatcher) poll(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(w.out)
	if watcher != nil {
		defer watcher.Close()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				w.logger.Warn("fsnotify watcher closed, switching to polling")
				events, errs = nil, nil
				continue
			}
			if event.Name == w.path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.consume(ctx)
			}

		case <-ticker.C:
			if info, err := os.Stat(w.path); err == nil && info.ModTime().After(w.lastCheck) {
				w.consume(ctx)
			}

		case err, ok := <-errs:
			if !ok {
				events, errs = nil, nil
				continue
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *commandWatcher) consume(ctx context.Context) {
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return
	}
	w.lastCheck = time.Now()

	cmd, err := ReadCommand(w.dir)
	if err != nil {
		w.logger.Error("failed to read command", "error", err)
		return
	}
	if cmd == "" {
		return
	}
	w.logger.Info("received command", "command", cmd)
	select {
	case w.out <- cmd:
	case <-ctx.Done():
	}
}
