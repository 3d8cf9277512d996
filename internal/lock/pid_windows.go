//go:build windows

package lock

import "os"

// pidAlive reports whether pid can be opened. Staleness by age still applies.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	p.Release()
	return true
}
