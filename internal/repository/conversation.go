package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
)

// ConversationRepo is the typed access layer over the conversations table.
type ConversationRepo struct {
	db *sql.DB
}

// Exists reports whether a conversation with id is already indexed.
func (r *ConversationRepo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: conversation exists %s: %v", dexerr.ErrStoreIO, id, err)
	}
	return true, nil
}

// ExistingIDs returns the subset of ids that are already present, for
// adapters deciding which vendor sessions can be skipped on an incremental
// sync.
func (r *ConversationRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const chunkSize = 500
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		chunk := ids[start:end]

		placeholders := make([]byte, 0, len(chunk)*2)
		args := make([]any, len(chunk))
		for i, id := range chunk {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '?')
			args[i] = id
		}
		query := fmt.Sprintf(`SELECT id FROM conversations WHERE id IN (%s)`, placeholders)
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: conversation existing ids: %v", dexerr.ErrStoreIO, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: scan conversation id: %v", dexerr.ErrStoreIO, err)
			}
			out[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: iterate conversation ids: %v", dexerr.ErrStoreIO, err)
		}
		rows.Close()
	}
	return out, nil
}

// FindByID returns one conversation, or dexerr.ErrNotFound.
func (r *ConversationRepo) FindByID(ctx context.Context, id string) (model.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
		FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return model.Conversation{}, fmt.Errorf("%w: conversation %s", dexerr.ErrNotFound, id)
	}
	if err != nil {
		return model.Conversation{}, fmt.Errorf("%w: find conversation %s: %v", dexerr.ErrStoreIO, id, err)
	}
	return c, nil
}

// List returns conversations ordered by most recently updated, applying the
// given filters. An empty source or workspace matches all.
func (r *ConversationRepo) List(ctx context.Context, source model.Source, workspace string, limit, offset int) ([]model.Conversation, error) {
	query := `SELECT
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
		FROM conversations WHERE 1=1`
	var args []any
	if source != "" {
		query += ` AND source = ?`
		args = append(args, string(source))
	}
	if workspace != "" {
		query += ` AND workspace = ?`
		args = append(args, workspace)
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan conversation: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindByIDs returns every conversation matching one of ids, in no
// particular order; callers that need a stable order (e.g. matching a
// caller-supplied id list) re-sort by the returned id.
func (r *ConversationRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Conversation, error) {
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
	query := fmt.Sprintf(`SELECT
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
		FROM conversations WHERE id IN (%s)`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find conversations by ids: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan conversation: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListFilters narrows ListFiltered's result set. Zero values mean
// unfiltered for that dimension; To is exclusive, so callers wanting an
// inclusive end date add 24h before calling.
type ListFilters struct {
	Source  model.Source
	Project string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// ListFiltered returns conversations matching f, newest first, alongside
// the total count ignoring f.Limit/f.Offset so callers can report
// pagination totals.
func (r *ConversationRepo) ListFiltered(ctx context.Context, f ListFilters) ([]model.Conversation, int, error) {
	where := `WHERE 1=1`
	var args []any
	if f.Source != "" {
		where += ` AND source = ?`
		args = append(args, string(f.Source))
	}
	if f.Project != "" {
		where += ` AND project = ?`
		args = append(args, f.Project)
	}
	if !f.From.IsZero() {
		where += ` AND created_at >= ?`
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where += ` AND created_at < ?`
		args = append(args, f.To)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM conversations ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count filtered conversations: %v", dexerr.ErrStoreIO, err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
		FROM conversations ` + where + ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list filtered conversations: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scan filtered conversation: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(s rowScanner) (model.Conversation, error) {
	var c model.Conversation
	var source, mode, refSource string
	err := s.Scan(
		&c.ID, &source, &c.Title, &c.Subtitle, &c.Workspace, &c.Project, &c.Model, &mode, &c.GitBranch,
		&c.CreatedAt, &c.UpdatedAt, &c.MessageCount,
		&refSource, &c.Ref.WorkspacePath, &c.Ref.OriginalID, &c.Ref.VendorDBPath,
		&c.InputTokens, &c.OutputTokens, &c.CacheCreationTokens, &c.CacheReadTokens,
		&c.LinesAdded, &c.LinesRemoved,
	)
	if err != nil {
		return model.Conversation{}, err
	}
	c.Source = model.Source(source)
	c.Mode = model.Mode(mode)
	c.Ref.Source = model.Source(refSource)
	return c, nil
}

// FindUntitled returns up to limit conversations whose title is still the
// empty-string placeholder normalization left behind, oldest first so a
// repeated enrichment pass makes steady progress across runs.
func (r *ConversationRepo) FindUntitled(ctx context.Context, limit int) ([]model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
		FROM conversations WHERE title = '' ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: find untitled conversations: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan untitled conversation: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetTitle writes a generated title for one conversation. Every other
// column is left untouched.
func (r *ConversationRepo) SetTitle(ctx context.Context, id, title string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE conversations SET title = ? WHERE id = ?`, title, id); err != nil {
		return fmt.Errorf("%w: set title for %s: %v", dexerr.ErrStoreIO, id, err)
	}
	return nil
}

// BulkUpsert inserts or replaces conversations, keyed by id.
func (r *ConversationRepo) BulkUpsert(ctx context.Context, convs []model.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin conversation upsert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversations (
		id, source, title, subtitle, workspace, project, model, mode, git_branch,
		created_at, updated_at, message_count,
		ref_source, ref_workspace_path, ref_original_id, ref_vendor_db_path,
		input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
		lines_added, lines_removed
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title=excluded.title, subtitle=excluded.subtitle, workspace=excluded.workspace,
		project=excluded.project, model=excluded.model, mode=excluded.mode,
		git_branch=excluded.git_branch, updated_at=excluded.updated_at,
		message_count=excluded.message_count,
		input_tokens=excluded.input_tokens, output_tokens=excluded.output_tokens,
		cache_creation_tokens=excluded.cache_creation_tokens, cache_read_tokens=excluded.cache_read_tokens,
		lines_added=excluded.lines_added, lines_removed=excluded.lines_removed`)
	if err != nil {
		return fmt.Errorf("%w: prepare conversation upsert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, c := range convs {
		_, err := stmt.ExecContext(ctx,
			c.ID, string(c.Source), c.Title, c.Subtitle, c.Workspace, c.Project, c.Model, string(c.Mode), c.GitBranch,
			c.CreatedAt, c.UpdatedAt, c.MessageCount,
			string(c.Ref.Source), c.Ref.WorkspacePath, c.Ref.OriginalID, c.Ref.VendorDBPath,
			c.InputTokens, c.OutputTokens, c.CacheCreationTokens, c.CacheReadTokens,
			c.LinesAdded, c.LinesRemoved,
		)
		if err != nil {
			return fmt.Errorf("%w: upsert conversation %s: %v", dexerr.ErrStoreIO, c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit conversation upsert: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}

// DeleteByID removes a conversation and, via ON DELETE CASCADE, every
// message, tool call, file reference, and edit that belongs to it.
func (r *ConversationRepo) DeleteByID(ctx context.Context, id string) error {
	return r.BulkDeleteByIDs(ctx, []string{id})
}

// BulkDeleteByIDs removes conversations in batches of at most 100
// OR-joined ids per statement, keeping the generated SQL under
// store-specific predicate-size limits. ON DELETE CASCADE removes every
// dependent row in the child tables.
func (r *ConversationRepo) BulkDeleteByIDs(ctx context.Context, ids []string) error {
	return batchDeleteByIDs(ctx, r.db, "conversations", "id", ids)
}

const deleteBatchSize = 100

// batchDeleteByIDs deletes rows from table where column is one of ids,
// issuing one DELETE per batch of at most deleteBatchSize ids.
func batchDeleteByIDs(ctx context.Context, db *sql.DB, table, column string, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		batch := ids[start:end]

		placeholders := make([]byte, 0, len(batch)*2)
		args := make([]any, len(batch))
		for i, id := range batch {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '?')
			args[i] = id
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s IN (%s)`, table, column, placeholders)
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: batch delete from %s: %v", dexerr.ErrStoreIO, table, err)
		}
	}
	return nil
}
