//go:build windows

package spawn

import (
	"os"
	"os/exec"
)

// detach is a no-op on Windows; CREATE_NEW_PROCESS_GROUP would need a
// dependency on golang.org/x/sys/windows that nothing else in dex pulls
// in, so the worker simply inherits the parent's process group here.
func detach(cmd *exec.Cmd) {}

// setNiceness is a no-op on Windows: nice values are POSIX-specific, and
// the Windows priority-class APIs require the same x/sys/windows
// dependency detach avoids.
func setNiceness(pid, niceness int) {}

// terminate kills the process outright; Windows has no SIGTERM, so the
// worker loses the chance to flush its progress sentinel on stop.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func processAlive(pid int) bool {
	return pid > 0 && pid != os.Getpid()
}
