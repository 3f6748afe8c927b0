// Package applog sets up the process-wide leveled logger. Output is mirrored
// to the console and to an append-only log file that is rotated to <file>.old
// once it grows past MaxFileSize.
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// MaxFileSize is the size at which the log file is rotated.
const MaxFileSize = 10 * 1024 * 1024

// Options configures New.
type Options struct {
	Name    string
	Level   string    // trace, debug, info, warn, error
	Path    string    // log file; empty logs to Console only
	Console io.Writer // defaults to os.Stderr
}

// Logger bundles the hclog logger with the file it writes to.
type Logger struct {
	hclog.Logger
	file *rotatingWriter
}

// New builds a Logger according to opts.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = console
	var rw *rotatingWriter
	if opts.Path != "" {
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		var err error
		rw, err = newRotatingWriter(opts.Path, MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(console, rw)
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return &Logger{
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:            opts.Name,
			Level:           level,
			Output:          out,
			TimeFormat:      "2006-01-02 15:04:05",
			Color:           hclog.ColorOff,
			IncludeLocation: false,
		}),
		file: rw,
	}, nil
}

// Close flushes and closes the log file. Safe when no file is configured.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.close()
}
