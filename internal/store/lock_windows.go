//go:build windows

package store

import "os"

// processAlive reports whether pid names a running process. Windows has
// no signal-0 probe; OpenProcess would need golang.org/x/sys/windows, so
// this conservatively treats any pid as alive unless it's the lock
// writer's own, favoring ErrStoreBusy over a false reclaim.
func processAlive(pid int) bool {
	return pid > 0 && pid != os.Getpid()
}
