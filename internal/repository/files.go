package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
)

// FileRepo is the typed access layer over conversation_files, message_files,
// and file_edits — the three tables that track which files a conversation
// touched and how.
type FileRepo struct {
	db *sql.DB
}

// DeleteByConversationIDs removes every conversation_files, message_files,
// and file_edits row belonging to any of the given conversation ids, in
// batches of at most deleteBatchSize per table.
func (r *FileRepo) DeleteByConversationIDs(ctx context.Context, conversationIDs []string) error {
	if err := batchDeleteByIDs(ctx, r.db, "conversation_files", "conversation_id", conversationIDs); err != nil {
		return err
	}
	if err := batchDeleteByIDs(ctx, r.db, "message_files", "conversation_id", conversationIDs); err != nil {
		return err
	}
	return batchDeleteByIDs(ctx, r.db, "file_edits", "conversation_id", conversationIDs)
}

// BulkInsertConversationFiles inserts conversation-level file references,
// ignoring any whose id already exists.
func (r *FileRepo) BulkInsertConversationFiles(ctx context.Context, files []model.ConversationFile) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin conversation file insert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversation_files (id, conversation_id, file_path, role)
		VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("%w: prepare conversation file insert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.ID, f.ConversationID, f.FilePath, string(f.Role)); err != nil {
			return fmt.Errorf("%w: insert conversation file %s: %v", dexerr.ErrStoreIO, f.ID, err)
		}
	}
	return tx.Commit()
}

// BulkInsertMessageFiles inserts message-level file references, ignoring
// any whose id already exists.
func (r *FileRepo) BulkInsertMessageFiles(ctx context.Context, files []model.MessageFile) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin message file insert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO message_files (id, message_id, conversation_id, file_path, role)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("%w: prepare message file insert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.ID, f.MessageID, f.ConversationID, f.FilePath, string(f.Role)); err != nil {
			return fmt.Errorf("%w: insert message file %s: %v", dexerr.ErrStoreIO, f.ID, err)
		}
	}
	return tx.Commit()
}

// BulkInsertFileEdits inserts file edits, ignoring any whose id already
// exists.
func (r *FileRepo) BulkInsertFileEdits(ctx context.Context, edits []model.FileEdit) error {
	if len(edits) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin file edit insert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_edits (
		id, message_id, conversation_id, file_path, edit_type,
		lines_added, lines_removed, start_line, end_line, has_line_range
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("%w: prepare file edit insert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, e := range edits {
		_, err := stmt.ExecContext(ctx, e.ID, e.MessageID, e.ConversationID, e.FilePath, string(e.EditType),
			e.LinesAdded, e.LinesRemoved, e.StartLine, e.EndLine, e.HasLineRange)
		if err != nil {
			return fmt.Errorf("%w: insert file edit %s: %v", dexerr.ErrStoreIO, e.ID, err)
		}
	}
	return tx.Commit()
}

// FileMatch is one file-path hit returned by Search, with the conversation
// it belongs to, its best-scoring role, and that role's score.
type FileMatch struct {
	ConversationID string
	FilePath       string
	Role           model.FileRole
	Score          float64
}

// roleScore weighs a file's role when the same (conversation, path) pair
// appears more than once: an edit is a stronger signal than a mention.
var roleScore = map[model.FileRole]float64{
	model.FileRoleEdited:    1.0,
	model.FileRoleContext:   0.5,
	model.FileRoleMentioned: 0.3,
}

// Search finds conversations that touched a file path containing substr
// (case-insensitive) across file_edits, conversation_files, and
// message_files, deduplicated per (conversation_id, file_path) to the
// highest-scoring role and sorted by score descending.
func (r *FileRepo) Search(ctx context.Context, substr string, limit int) ([]FileMatch, error) {
	pattern := "%" + substr + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, file_path, 'edited' FROM file_edits WHERE file_path LIKE ? ESCAPE '\' COLLATE NOCASE
		UNION ALL
		SELECT conversation_id, file_path, role FROM conversation_files WHERE file_path LIKE ? ESCAPE '\' COLLATE NOCASE
		UNION ALL
		SELECT conversation_id, file_path, role FROM message_files WHERE file_path LIKE ? ESCAPE '\' COLLATE NOCASE
	`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: search files %s: %v", dexerr.ErrStoreIO, substr, err)
	}
	defer rows.Close()

	type key struct{ convID, path string }
	best := make(map[key]model.FileRole)
	order := make([]key, 0)
	for rows.Next() {
		var convID, path, role string
		if err := rows.Scan(&convID, &path, &role); err != nil {
			return nil, fmt.Errorf("%w: scan file match: %v", dexerr.ErrStoreIO, err)
		}
		k := key{convID, path}
		if existing, ok := best[k]; !ok {
			order = append(order, k)
			best[k] = model.FileRole(role)
		} else if roleScore[model.FileRole(role)] > roleScore[existing] {
			best[k] = model.FileRole(role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate file matches: %v", dexerr.ErrStoreIO, err)
	}

	out := make([]FileMatch, 0, len(order))
	for _, k := range order {
		role := best[k]
		out = append(out, FileMatch{ConversationID: k.convID, FilePath: k.path, Role: role, Score: roleScore[role]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
