// Package probe answers "is the streamer live right now?".
package probe

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Prober is a boolean oracle for stream availability. Implementations must
// not fail: anything that prevents an answer maps to false.
type Prober interface {
	IsOnline(ctx context.Context) bool
}

// Config configures the streamlink-backed prober.
type Config struct {
	BinaryPath string        // default "streamlink"
	StreamURL  string        // channel URL
	Quality    string        // streamlink quality selector
	Timeout    time.Duration // per-probe limit, default 30s
}

// Streamlink asks `streamlink --stream-url` to resolve a playable URL. The
// channel counts as online when streamlink exits 0 and prints something.
type Streamlink struct {
	cfg    Config
	logger hclog.Logger
}

// NewStreamlink creates a prober with the given config.
func NewStreamlink(cfg Config, logger hclog.Logger) *Streamlink {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "streamlink"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Streamlink{cfg: cfg, logger: logger}
}

// IsOnline runs one probe.
func (s *Streamlink) IsOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.BinaryPath, "--stream-url", s.cfg.StreamURL, s.cfg.Quality)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		s.logger.Trace("probe reports offline", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return false
	}
	return strings.TrimSpace(stdout.String()) != ""
}

// Func adapts a plain function to Prober.
type Func func(ctx context.Context) bool

func (f Func) IsOnline(ctx context.Context) bool { return f(ctx) }
