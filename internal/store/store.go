// Package store implements dex's single on-disk index: a SQLite database
// holding normalized conversations, messages, tool calls, file references,
// and sync state, with an FTS5 virtual table kept in sync with message
// content via triggers and a vector BLOB column searched by linear cosine
// scan. One process writes to the database at a time, enforced by an
// advisory file lock held for the duration of a sync.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/tvergho/dex/internal/dexerr"
)

// Store wraps a *sql.DB opened against dex's SQLite file, with the schema
// already created and triggers wired up.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema is current. vectorDim is recorded for callers that
// need to size zero-vector placeholders; it is not enforced at the SQL
// layer since SQLite has no fixed-length BLOB constraint.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", dexerr.ErrStoreIO, path, err)
	}
	// A single writer is enforced at the application level via the sync
	// lock; SQLite itself tolerates many readers, so the pool stays small
	// to avoid contending for the WAL lock under concurrent CLI commands.
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for repository packages that need to
// build their own prepared statements and transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Lock acquires the store's read/write mutex in write mode for the
// duration of a mutation. It complements, not replaces, the process-wide
// sync lock in this package's lock.go: this mutex protects against
// concurrent goroutines within one process; the file lock protects
// against concurrent dex processes.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the write lock acquired by Lock.
func (s *Store) Unlock() {
	s.mu.Unlock()
}

// RLock acquires the store's read/write mutex in read mode, for read-only
// query paths (search, list, get) that may run concurrently with each
// other but not with a sync's writes.
func (s *Store) RLock() {
	s.mu.RLock()
}

// RUnlock releases the read lock acquired by RLock.
func (s *Store) RUnlock() {
	s.mu.RUnlock()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	subtitle TEXT NOT NULL DEFAULT '',
	workspace TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	git_branch TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	ref_source TEXT NOT NULL DEFAULT '',
	ref_workspace_path TEXT NOT NULL DEFAULT '',
	ref_original_id TEXT NOT NULL DEFAULT '',
	ref_vendor_db_path TEXT NOT NULL DEFAULT '',
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	lines_added INTEGER NOT NULL DEFAULT 0,
	lines_removed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_conversations_source ON conversations(source);
CREATE INDEX IF NOT EXISTS idx_conversations_workspace ON conversations(workspace);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	timestamp DATETIME,
	has_timestamp INTEGER NOT NULL DEFAULT 0,
	message_index INTEGER NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	lines_added INTEGER NOT NULL DEFAULT 0,
	lines_removed INTEGER NOT NULL DEFAULT 0,
	vector BLOB
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role);

CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	tool_type TEXT NOT NULL DEFAULT '',
	input TEXT NOT NULL DEFAULT '',
	output TEXT NOT NULL DEFAULT '',
	file_path TEXT NOT NULL DEFAULT '',
	is_error INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_message_id ON tool_calls(message_id);
CREATE INDEX IF NOT EXISTS idx_tool_calls_conversation_id ON tool_calls(conversation_id);

CREATE TABLE IF NOT EXISTS conversation_files (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_conversation_files_conversation_id ON conversation_files(conversation_id);
CREATE INDEX IF NOT EXISTS idx_conversation_files_file_path ON conversation_files(file_path);

CREATE TABLE IF NOT EXISTS message_files (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_message_files_message_id ON message_files(message_id);
CREATE INDEX IF NOT EXISTS idx_message_files_file_path ON message_files(file_path);

CREATE TABLE IF NOT EXISTS file_edits (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	edit_type TEXT NOT NULL DEFAULT '',
	lines_added INTEGER NOT NULL DEFAULT 0,
	lines_removed INTEGER NOT NULL DEFAULT 0,
	start_line INTEGER NOT NULL DEFAULT 0,
	end_line INTEGER NOT NULL DEFAULT 0,
	has_line_range INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_file_edits_conversation_id ON file_edits(conversation_id);
CREATE INDEX IF NOT EXISTS idx_file_edits_file_path ON file_edits(file_path);

CREATE TABLE IF NOT EXISTS sync_state (
	source TEXT NOT NULL,
	vendor_db_path TEXT NOT NULL,
	workspace_path TEXT NOT NULL DEFAULT '',
	last_synced_at DATETIME,
	last_mtime REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (source, vendor_db_path)
);

-- FTS5 virtual table over message content, kept in sync with the messages
-- table via triggers so an UPDATE to a message's non-text columns (e.g.
-- its vector once embedded) never disturbs the text index, and a rewrite
-- of content always does.
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

// RebuildFTS issues FTS5's external-content 'rebuild' command, regenerating
// messages_fts from the messages table in full. The insert/delete/update
// triggers keep the index current row by row; this is for repairing drift
// after a bulk operation that bypassed them, or recovering from corruption.
func (s *Store) RebuildFTS(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO messages_fts(messages_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("%w: rebuild fts index: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: create schema: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}
