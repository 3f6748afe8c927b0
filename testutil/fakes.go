// Package testutil holds fakes for the archiver's collaborators.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tiroq/vodkeeper/internal/capture"
	"github.com/tiroq/vodkeeper/internal/disk"
)

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{t: t} }

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// FakeProber answers from a script, then repeats Default.
type FakeProber struct {
	mu      sync.Mutex
	script  []bool
	Default bool
	calls   int
}

func NewFakeProber(script ...bool) *FakeProber {
	return &FakeProber{script: script}
}

func (p *FakeProber) IsOnline(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.script) == 0 {
		return p.Default
	}
	v := p.script[0]
	p.script = p.script[1:]
	return v
}

// Set replaces the remaining script and default.
func (p *FakeProber) Set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = nil
	p.Default = online
}

func (p *FakeProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// FakeCapturer writes Bytes to the destination and then blocks until Finish
// is called or ctx is done, like a streamlink process would.
type FakeCapturer struct {
	Bytes int

	mu      sync.Mutex
	started []string
	running int
	finish  chan error
}

func NewFakeCapturer(bytes int) *FakeCapturer {
	return &FakeCapturer{Bytes: bytes, finish: make(chan error, 8)}
}

func (f *FakeCapturer) Capture(ctx context.Context, destination string) error {
	f.mu.Lock()
	f.started = append(f.started, destination)
	f.running++
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if err := os.WriteFile(destination, make([]byte, f.Bytes), 0644); err != nil {
		return err
	}

	select {
	case err := <-f.finish:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", capture.ErrCaptureStopped, ctx.Err())
	}
}

// Finish makes the running capture exit with err (nil means the stream ended).
func (f *FakeCapturer) Finish(err error) { f.finish <- err }

// Started lists the destinations of every capture so far.
func (f *FakeCapturer) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// Running is the number of captures currently in flight.
func (f *FakeCapturer) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// RecordingNotifier keeps every notice in order.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *RecordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *RecordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// FakeDisk reports a fixed amount of free space.
type FakeDisk struct {
	mu        sync.Mutex
	status    disk.Status
	err       error
	sweeps    int
	threshold float64
}

func NewFakeDisk(freeGB, thresholdGB float64) *FakeDisk {
	d := &FakeDisk{threshold: thresholdGB}
	d.SetFree(freeGB)
	return d
}

func (d *FakeDisk) SetFree(freeGB float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = disk.Status{FreeGB: freeGB, Healthy: freeGB >= d.threshold}
}

// FailWith makes Check return err with a healthy status.
func (d *FakeDisk) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *FakeDisk) Check(context.Context) (disk.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return disk.Status{Healthy: true}, d.err
	}
	return d.status, nil
}

func (d *FakeDisk) Sweep(context.Context) disk.SweepResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweeps++
	return disk.SweepResult{}
}

func (d *FakeDisk) Sweeps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sweeps
}
