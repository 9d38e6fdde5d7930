//go:build !windows

package store

import "syscall"

// processAlive reports whether pid names a running process, using a
// signal-0 probe which delivers no signal but still checks permission
// and existence.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
