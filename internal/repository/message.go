package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/store"
)

// MessageRepo is the typed access layer over the messages table.
type MessageRepo struct {
	db *sql.DB
}

// DeleteByConversationIDs removes every message belonging to any of the
// given conversation ids, in batches of at most deleteBatchSize. Used by
// force-mode resync alongside the cascading delete on the conversation row
// itself, so a delete issued directly against this table (without also
// deleting its parent conversation) still leaves no orphaned messages.
func (r *MessageRepo) DeleteByConversationIDs(ctx context.Context, conversationIDs []string) error {
	return batchDeleteByIDs(ctx, r.db, "messages", "conversation_id", conversationIDs)
}

// FindByID returns one message, or dexerr.ErrNotFound.
func (r *MessageRepo) FindByID(ctx context.Context, id string) (model.Message, error) {
	row := r.db.QueryRowContext(ctx, selectMessageColumns+` WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return model.Message{}, fmt.Errorf("%w: message %s", dexerr.ErrNotFound, id)
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: find message %s: %v", dexerr.ErrStoreIO, id, err)
	}
	return m, nil
}

// FindByConversation returns every message in conversationID, ordered by
// message_index.
func (r *MessageRepo) FindByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessageColumns+` WHERE conversation_id = ? ORDER BY message_index ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: find messages for %s: %v", dexerr.ErrStoreIO, conversationID, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UnembeddedBatch returns up to limit messages whose vector is still the
// all-zero placeholder, for the embedding worker to pick up.
func (r *MessageRepo) UnembeddedBatch(ctx context.Context, limit int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessageColumns+` WHERE vector IS NULL OR vector = '' ORDER BY rowid ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: unembedded batch: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan unembedded message: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountUnembedded reports how many messages still carry the placeholder
// vector, for progress reporting.
func (r *MessageRepo) CountUnembedded(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM messages WHERE vector IS NULL OR vector = ''`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count unembedded: %v", dexerr.ErrStoreIO, err)
	}
	return count, nil
}

// SetVector writes the embedding for one message. Content and every other
// column are left untouched, which keeps the messages_fts shadow table
// undisturbed per its AFTER UPDATE trigger.
func (r *MessageRepo) SetVector(ctx context.Context, id string, vec []float32) error {
	encoded, err := store.EncodeVector(vec)
	if err != nil {
		return fmt.Errorf("%w: encode vector for %s: %v", dexerr.ErrStoreIO, id, err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE messages SET vector = ? WHERE id = ?`, encoded, id); err != nil {
		return fmt.Errorf("%w: set vector for %s: %v", dexerr.ErrStoreIO, id, err)
	}
	return nil
}

// FTSHit is one row of a full-text match, in the rank order FTS5's bm25
// scoring returned it.
type FTSHit struct {
	MessageID string
	Rank      int // 1-based position in the result set, best match first
}

// SearchFTS runs a full-text query against messages_fts and returns up to
// limit hits ordered by relevance. query is passed through as an FTS5
// MATCH expression; callers are responsible for any escaping (see
// internal/search's query sanitizer).
func (r *MessageRepo) SearchFTS(ctx context.Context, query string, limit int) ([]FTSHit, error) {
	if query == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id FROM messages_fts f
		JOIN messages m ON m.rowid = f.rowid
		WHERE f.content MATCH ?
		ORDER BY f.rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search fts: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []FTSHit
	rank := 1
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan fts hit: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, FTSHit{MessageID: id, Rank: rank})
		rank++
	}
	return out, rows.Err()
}

// EmbeddedAll returns every message that carries a vector, for the hybrid
// search service's brute-force nearest-neighbor scoring. There is no
// sqlite vector index in play here: cosine similarity is computed in Go
// over every embedded row, which is adequate at the single-user, local
// scale this store runs at.
func (r *MessageRepo) EmbeddedAll(ctx context.Context) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessageColumns+` WHERE vector IS NOT NULL AND vector != ''`)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded all: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan embedded message: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindByIDs returns messages matching any of ids, in no particular order.
func (r *MessageRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := fmt.Sprintf(selectMessageColumns+` WHERE id IN (%s)`, placeholders)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find messages by ids: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const selectMessageColumns = `SELECT
	id, conversation_id, role, content, model, timestamp, has_timestamp, message_index,
	input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
	lines_added, lines_removed, vector
	FROM messages`

func scanMessage(s rowScanner) (model.Message, error) {
	var m model.Message
	var role string
	var ts sql.NullTime
	var vecBlob []byte
	err := s.Scan(
		&m.ID, &m.ConversationID, &role, &m.Content, &m.Model, &ts, &m.HasTimestamp, &m.MessageIndex,
		&m.InputTokens, &m.OutputTokens, &m.CacheCreationTokens, &m.CacheReadTokens,
		&m.LinesAdded, &m.LinesRemoved, &vecBlob,
	)
	if err != nil {
		return model.Message{}, err
	}
	m.Role = model.Role(role)
	if ts.Valid {
		m.Timestamp = ts.Time
	}
	vec, err := store.DecodeVector(vecBlob)
	if err != nil {
		return model.Message{}, err
	}
	m.Vector = vec
	return m, nil
}

// BulkInsert inserts messages, ignoring any whose id already exists — a
// message's content never changes after extraction, so re-syncing the same
// source data is a no-op rather than an overwrite.
func (r *MessageRepo) BulkInsert(ctx context.Context, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin message insert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (
		id, conversation_id, role, content, model, timestamp, has_timestamp, message_index,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed, vector
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("%w: prepare message insert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		// A message with no vector yet is stored as SQL NULL, matching
		// UnembeddedBatch/CountUnembedded's "vector IS NULL OR vector = ''"
		// scan: an encoded zero-length blob is a distinct, non-NULL value
		// that scan would miss.
		var vec any
		if len(m.Vector) > 0 {
			encoded, err := store.EncodeVector(m.Vector)
			if err != nil {
				return fmt.Errorf("%w: encode vector for %s: %v", dexerr.ErrStoreIO, m.ID, err)
			}
			vec = encoded
		}
		var ts any
		if m.HasTimestamp {
			ts = m.Timestamp
		}
		_, err = stmt.ExecContext(ctx,
			m.ID, m.ConversationID, string(m.Role), m.Content, m.Model, ts, m.HasTimestamp, m.MessageIndex,
			m.InputTokens, m.OutputTokens, m.CacheCreationTokens, m.CacheReadTokens,
			m.LinesAdded, m.LinesRemoved, vec,
		)
		if err != nil {
			return fmt.Errorf("%w: insert message %s: %v", dexerr.ErrStoreIO, m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit message insert: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}
