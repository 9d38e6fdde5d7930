package sync

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ResolveWorkerBinary returns a function that locates the dex-embedworker
// executable: configured takes priority; otherwise $PATH; otherwise the
// sibling of this process's own executable (the layout `go install`/a
// release tarball produces when both binaries ship together).
func ResolveWorkerBinary(configured string) func() (string, error) {
	return func() (string, error) {
		if configured != "" {
			return configured, nil
		}
		if path, err := exec.LookPath("dex-embedworker"); err == nil {
			return path, nil
		}
		self, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate dex-embedworker: %w", err)
		}
		sibling := filepath.Join(filepath.Dir(self), "dex-embedworker")
		if _, err := os.Stat(sibling); err != nil {
			return "", fmt.Errorf("dex-embedworker not found on PATH or next to %s", self)
		}
		return sibling, nil
	}
}
