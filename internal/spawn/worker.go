package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/tvergho/dex/internal/dexerr"
)

// PidFile is where the running worker's pid is recorded, next to the
// database it is embedding into.
func PidFile(dbPath string) string {
	return dbPath + ".worker.pid"
}

// Running reports whether a worker process is already alive for pidFile,
// reclaiming (removing) the file if the pid it names has exited.
func Running(pidFile string) (pid int, alive bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(pidFile)
		return 0, false
	}
	if !processAlive(pid) {
		os.Remove(pidFile)
		return 0, false
	}
	return pid, true
}

// Worker starts binaryPath as a detached, low-priority child process, and
// records its pid in pidFile. It refuses to start a second worker while
// one already claims pidFile.
func Worker(binaryPath string, args []string, pidFile string, niceness int) error {
	if pid, alive := Running(pidFile); alive {
		return fmt.Errorf("%w: worker already running (pid %d)", dexerr.ErrStoreBusy, pid)
	}

	cmd := exec.Command(binaryPath, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start embedding worker: %w", err)
	}
	// The worker outlives this process; cmd.Process.Release detaches it
	// from Go's child-reaping so it isn't left a zombie when this process
	// exits without waiting on it.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release embedding worker: %w", err)
	}

	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		return fmt.Errorf("write worker pid file: %w", err)
	}
	setNiceness(cmd.Process.Pid, niceness)
	return nil
}

// Stop signals a running worker to shut down and removes pidFile. It is a
// no-op if no worker is running.
func Stop(pidFile string) error {
	pid, alive := Running(pidFile)
	if !alive {
		return nil
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("stop embedding worker (pid %d): %w", pid, err)
	}
	return os.Remove(pidFile)
}
