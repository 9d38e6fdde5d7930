package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tvergho/dex/internal/dexerr"
)

// SyncLock is a process-wide advisory lock backed by a pidfile next to the
// database. Only one dex process may hold it at a time; a sync that can't
// acquire it fails fast with dexerr.ErrStoreBusy rather than racing
// another sync's writes.
type SyncLock struct {
	path string
}

// AcquireSyncLock attempts to take the sync lock for the database at
// dbPath. If an existing lock file names a process that is no longer
// running, it is treated as stale and reclaimed.
func AcquireSyncLock(dbPath string) (*SyncLock, error) {
	lockPath := dbPath + ".lock"

	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("%w: create lock file: %v", dexerr.ErrStoreIO, err)
		}
		if reclaimed, rerr := reclaimStaleLock(lockPath); rerr != nil {
			return nil, rerr
		} else if !reclaimed {
			return nil, dexerr.ErrStoreBusy
		}
		f, err = os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, dexerr.ErrStoreBusy
		}
	}
	defer f.Close()

	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("%w: write lock pid: %v", dexerr.ErrStoreIO, err)
	}
	return &SyncLock{path: lockPath}, nil
}

// Release removes the lock file, allowing another process to acquire it.
func (l *SyncLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove lock file: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}

// reclaimStaleLock removes lockPath if the pid it names is no longer a
// live process, reporting whether it did so.
func reclaimStaleLock(lockPath string) (bool, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Lock disappeared between our failed create and this read;
			// the caller's retry will succeed or fail on its own merits.
			return true, nil
		}
		return false, fmt.Errorf("%w: read lock file: %v", dexerr.ErrStoreIO, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Unreadable pid: a previous crash left a malformed lock file.
		// Safe to reclaim since no valid pid can be waiting on it.
		return os.Remove(lockPath) == nil, nil
	}
	if processAlive(pid) {
		return false, nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("%w: remove stale lock file: %v", dexerr.ErrStoreIO, err)
	}
	return true, nil
}
