package spawn

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestRunningReportsFalseWhenNoPidFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	if _, alive := Running(pidFile); alive {
		t.Fatal("expected Running() false for missing pid file")
	}
}

func TestRunningReclaimsStalePidFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(999999999)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, alive := Running(pidFile); alive {
		t.Fatal("expected Running() false for a pid that no longer exists")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Fatal("expected stale pid file to be removed")
	}
}

func TestWorkerRefusesSecondStartWhileRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := Worker("/bin/true", nil, pidFile, 19); err == nil {
		t.Fatal("expected error starting a second worker while one is running")
	}
}

func TestStopIsNoOpWithoutRunningWorker(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	if err := Stop(pidFile); err != nil {
		t.Fatalf("Stop() on idle pid file error = %v", err)
	}
}
