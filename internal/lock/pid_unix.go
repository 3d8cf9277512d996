//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// pidAlive sends signal 0 to pid. EPERM means the process exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
