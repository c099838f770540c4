//go:build !windows

package processstate

import (
	"fmt"
	"os"
	"syscall"
)

// IsProcessRunning reports whether a process with the given PID is alive.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID: %d", pid)
	}

	// On Unix, FindProcess always succeeds regardless of whether the
	// process exists; signal 0 is the actual existence probe.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err.Error() == "os: process already finished" {
		return false, nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false, err
	}
	switch errno {
	case syscall.ESRCH:
		return false, nil
	case syscall.EPERM:
		// Process exists but belongs to someone else
		return true, nil
	}
	return false, err
}
