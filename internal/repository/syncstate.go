package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
)

// SyncStateRepo is the typed access layer over sync_state, tracking the
// last sync point for each (source, vendor_db_path) pair so an incremental
// sync knows what it's already seen.
type SyncStateRepo struct {
	db *sql.DB
}

// Get returns the sync state for one vendor location, or the zero value
// with ok=false if it has never been synced.
func (r *SyncStateRepo) Get(ctx context.Context, source model.Source, vendorDBPath string) (model.SyncState, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT source, vendor_db_path, workspace_path, last_synced_at, last_mtime
		FROM sync_state WHERE source = ? AND vendor_db_path = ?`, string(source), vendorDBPath)

	var st model.SyncState
	var src string
	var lastSynced sql.NullTime
	err := row.Scan(&src, &st.VendorDBPath, &st.WorkspacePath, &lastSynced, &st.LastMtime)
	if err == sql.ErrNoRows {
		return model.SyncState{}, false, nil
	}
	if err != nil {
		return model.SyncState{}, false, fmt.Errorf("%w: get sync state %s %s: %v", dexerr.ErrStoreIO, source, vendorDBPath, err)
	}
	st.Source = model.Source(src)
	if lastSynced.Valid {
		st.LastSyncedAt = lastSynced.Time
	}
	return st, true, nil
}

// Upsert records the latest sync point for one vendor location.
func (r *SyncStateRepo) Upsert(ctx context.Context, st model.SyncState) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sync_state (source, vendor_db_path, workspace_path, last_synced_at, last_mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, vendor_db_path) DO UPDATE SET
			workspace_path=excluded.workspace_path,
			last_synced_at=excluded.last_synced_at,
			last_mtime=excluded.last_mtime`,
		string(st.Source), st.VendorDBPath, st.WorkspacePath, st.LastSyncedAt, st.LastMtime)
	if err != nil {
		return fmt.Errorf("%w: upsert sync state %s %s: %v", dexerr.ErrStoreIO, st.Source, st.VendorDBPath, err)
	}
	return nil
}

// All returns every recorded sync state, for the status command.
func (r *SyncStateRepo) All(ctx context.Context) ([]model.SyncState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT source, vendor_db_path, workspace_path, last_synced_at, last_mtime FROM sync_state ORDER BY source, vendor_db_path`)
	if err != nil {
		return nil, fmt.Errorf("%w: list sync state: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.SyncState
	for rows.Next() {
		var st model.SyncState
		var src string
		var lastSynced sql.NullTime
		if err := rows.Scan(&src, &st.VendorDBPath, &st.WorkspacePath, &lastSynced, &st.LastMtime); err != nil {
			return nil, fmt.Errorf("%w: scan sync state: %v", dexerr.ErrStoreIO, err)
		}
		st.Source = model.Source(src)
		if lastSynced.Valid {
			st.LastSyncedAt = lastSynced.Time
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
