package repository

import (
	"context"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
)

func TestSyncStateUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	_, ok, err := repos.Syncs.Get(ctx, model.SourceCodex, "/home/user/.codex/sessions")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Fatal("expected no sync state before first sync")
	}

	st := model.SyncState{
		Source:        model.SourceCodex,
		VendorDBPath:  "/home/user/.codex/sessions",
		WorkspacePath: "/home/user/proj",
		LastSyncedAt:  time.Now(),
		LastMtime:     123.456,
	}
	if err := repos.Syncs.Upsert(ctx, st); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, ok, err := repos.Syncs.Get(ctx, model.SourceCodex, "/home/user/.codex/sessions")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("expected sync state after upsert")
	}
	if got.LastMtime != st.LastMtime || got.WorkspacePath != st.WorkspacePath {
		t.Fatalf("round-tripped sync state mismatch: %+v", got)
	}

	st.LastMtime = 789.0
	if err := repos.Syncs.Upsert(ctx, st); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	all, err := repos.Syncs.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all[0].LastMtime != 789.0 {
		t.Fatalf("expected updated single row, got %+v", all)
	}
}
