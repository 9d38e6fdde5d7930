package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
)

// ToolCallRepo is the typed access layer over the tool_calls table.
type ToolCallRepo struct {
	db *sql.DB
}

// DeleteByConversationIDs removes every tool call belonging to any of the
// given conversation ids, in batches of at most deleteBatchSize.
func (r *ToolCallRepo) DeleteByConversationIDs(ctx context.Context, conversationIDs []string) error {
	return batchDeleteByIDs(ctx, r.db, "tool_calls", "conversation_id", conversationIDs)
}

// FindByMessage returns every tool call attached to messageID, in insertion
// order.
func (r *ToolCallRepo) FindByMessage(ctx context.Context, messageID string) ([]model.ToolCall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, message_id, conversation_id, tool_type, input, output, file_path, is_error
		FROM tool_calls WHERE message_id = ? ORDER BY rowid ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: find tool calls for %s: %v", dexerr.ErrStoreIO, messageID, err)
	}
	defer rows.Close()

	var out []model.ToolCall
	for rows.Next() {
		var tc model.ToolCall
		if err := rows.Scan(&tc.ID, &tc.MessageID, &tc.ConversationID, &tc.ToolType, &tc.Input, &tc.Output, &tc.FilePath, &tc.IsError); err != nil {
			return nil, fmt.Errorf("%w: scan tool call: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// BulkInsert inserts tool calls, ignoring any whose id already exists.
func (r *ToolCallRepo) BulkInsert(ctx context.Context, calls []model.ToolCall) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tool call insert: %v", dexerr.ErrStoreIO, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tool_calls (
		id, message_id, conversation_id, tool_type, input, output, file_path, is_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("%w: prepare tool call insert: %v", dexerr.ErrStoreIO, err)
	}
	defer stmt.Close()

	for _, tc := range calls {
		_, err := stmt.ExecContext(ctx, tc.ID, tc.MessageID, tc.ConversationID, tc.ToolType, tc.Input, tc.Output, tc.FilePath, tc.IsError)
		if err != nil {
			return fmt.Errorf("%w: insert tool call %s: %v", dexerr.ErrStoreIO, tc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tool call insert: %v", dexerr.ErrStoreIO, err)
	}
	return nil
}
