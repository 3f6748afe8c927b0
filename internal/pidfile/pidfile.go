package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PIDFile manages a PID file for preventing duplicate instances
type PIDFile struct {
	path string
	pid  int
}

// New creates a new PID file at the specified path
// Returns an error if a PID file already exists with a running process
func New(path string) (*PIDFile, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	if existingPID, running, err := Read(path); err == nil {
		if running {
			return nil, fmt.Errorf("another instance is already running (PID %d)", existingPID)
		}
		// Process not running, remove stale PID file
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale PID file: %w", err)
		}
	}

	// Write current process PID
	currentPID := os.Getpid()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", currentPID)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &PIDFile{
		path: path,
		pid:  currentPID,
	}, nil
}

// Read returns the PID recorded at path and whether that process is alive.
func Read(path string) (pid int, running bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, isProcessRunning(pid), nil
}

// Remove deletes the PID file
func (p *PIDFile) Remove() error {
	if p == nil {
		return nil
	}

	// Only remove if it contains our PID
	if pid, _, err := Read(p.path); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}

	return nil
}

// Path returns the PID file location for the daemon archiving streamer.
func Path(stateDir, streamer string) string {
	return filepath.Join(stateDir, "vodkeeper-"+strings.ToLower(streamer)+".pid")
}
