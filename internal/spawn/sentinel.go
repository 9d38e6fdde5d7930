package spawn

import (
	"encoding/json"
	"os"
	"time"
)

// Status is the embedding worker's lifecycle state, as written to its
// progress sentinel file.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDownloading Status = "downloading"
	StatusEmbedding   Status = "embedding"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)

// Progress is the worker's progress sentinel: the orchestrator writes the
// initial idle state after spawning it, and the worker itself overwrites
// this file as it works, so any process can poll it without a socket or
// RPC call.
type Progress struct {
	Status      Status     `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ProgressFile is where the worker's progress sentinel lives, next to the
// database it is embedding into.
func ProgressFile(dbPath string) string {
	return dbPath + ".worker.progress.json"
}

// WriteProgress atomically replaces the sentinel file at path with p, so a
// reader never observes a half-written file.
func WriteProgress(path string, p Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadProgress reads the sentinel file at path. A missing file is reported
// as the zero Progress with ok=false, not an error: no worker has run yet.
func ReadProgress(path string) (Progress, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Progress{}, false, nil
		}
		return Progress{}, false, err
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, false, err
	}
	return p, true, nil
}
