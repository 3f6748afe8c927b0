//go:build unix

package pidfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isProcessRunning sends signal 0, which checks for existence without
// delivering anything.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM: the process exists but belongs to someone else.
	return err == nil || errors.Is(err, unix.EPERM)
}
