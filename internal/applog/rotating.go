package applog

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// rotatingWriter is a mutex-guarded append-only writer. When the next write
// would exceed maxSize the current file is renamed to <path>.old (replacing
// any previous one) and a fresh file is started.
type rotatingWriter struct {
	path    string
	maxSize int64
	f       *os.File
	size    int64
	mu      sync.Mutex
}

func newRotatingWriter(path string, maxSize int64) (*rotatingWriter, error) {
	rw := &rotatingWriter{path: path, maxSize: maxSize}
	if err := rw.open(); err != nil {
		return nil, err
	}
	if rw.size >= maxSize {
		if err := rw.rotate(); err != nil {
			if rw.f != nil {
				_ = rw.f.Close()
			}
			return nil, err
		}
	}
	return rw, nil
}

func (rw *rotatingWriter) open() error {
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	rw.f = f
	rw.size = info.Size()
	return nil
}

// rotate must be called with mu held (or before the writer is shared).
// The log file is reopened even when the rename fails, so a failed rotation
// leaves the writer appending to the current file. rw.f is nil only if the
// reopen itself failed.
func (rw *rotatingWriter) rotate() error {
	_ = rw.f.Close()
	rw.f = nil

	oldPath := rw.path + ".old"
	var rotateErr error
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		rotateErr = fmt.Errorf("failed to remove old log: %w", err)
	} else if err := os.Rename(rw.path, oldPath); err != nil {
		rotateErr = fmt.Errorf("failed to rotate log: %w", err)
	}

	if err := rw.open(); err != nil {
		return errors.Join(rotateErr, err)
	}
	return rotateErr
}

// Write appends p to the file, rotating first if p would overflow maxSize.
// When rotation fails the entry is still appended and the next attempt is
// deferred until another maxSize bytes have been written.
func (rw *rotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.f == nil {
		if err := rw.open(); err != nil {
			return 0, err
		}
	}

	if rw.size > 0 && rw.size+int64(len(p)) > rw.maxSize {
		if err := rw.rotate(); err != nil {
			if rw.f == nil {
				return 0, err
			}
			fmt.Fprintf(os.Stderr, "log rotation failed, continuing in %s: %v\n", rw.path, err)
			rw.size = 0
		}
	}

	n, err := rw.f.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *rotatingWriter) close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.f == nil {
		return nil
	}
	_ = rw.f.Sync()
	return rw.f.Close()
}
