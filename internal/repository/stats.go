package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tvergho/dex/internal/dexerr"
)

// SourceCount is one row of the per-source breakdown.
type SourceCount struct {
	Source string
	Count  int
}

// ProjectCount is one row of the top-projects ranking.
type ProjectCount struct {
	Project string
	Count   int
}

// CountSince returns the number of conversations created at or after since.
// A zero since counts every conversation.
func (r *ConversationRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	var err error
	if since.IsZero() {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE created_at >= ?`, since).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count conversations: %v", dexerr.ErrStoreIO, err)
	}
	return n, nil
}

// SourceBreakdown returns the conversation count per source, created at or
// after since.
func (r *ConversationRepo) SourceBreakdown(ctx context.Context, since time.Time) ([]SourceCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM conversations
		WHERE created_at >= ? GROUP BY source ORDER BY COUNT(*) DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("%w: source breakdown: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("%w: scan source breakdown: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// TopProjects returns the busiest projects by conversation count, created at
// or after since. Conversations with an empty project are excluded.
func (r *ConversationRepo) TopProjects(ctx context.Context, since time.Time, limit int) ([]ProjectCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT project, COUNT(*) FROM conversations
		WHERE created_at >= ? AND project != '' GROUP BY project ORDER BY COUNT(*) DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: top projects: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []ProjectCount
	for rows.Next() {
		var pc ProjectCount
		if err := rows.Scan(&pc.Project, &pc.Count); err != nil {
			return nil, fmt.Errorf("%w: scan top projects: %v", dexerr.ErrStoreIO, err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// ActiveDates returns the distinct calendar dates (UTC, truncated to the
// day) on which at least one conversation was created at or after since,
// ordered most recent first.
func (r *ConversationRepo) ActiveDates(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT date(created_at) FROM conversations
		WHERE created_at >= ? ORDER BY date(created_at) DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("%w: active dates: %v", dexerr.ErrStoreIO, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: scan active date: %v", dexerr.ErrStoreIO, err)
		}
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("%w: parse active date %q: %v", dexerr.ErrCorruptRecord, s, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TotalTokens sums input/output tokens across conversations created at or
// after since.
func (r *ConversationRepo) TotalTokens(ctx context.Context, since time.Time) (input, output int64, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM conversations WHERE created_at >= ?`, since)
	if scanErr := row.Scan(&input, &output); scanErr != nil {
		return 0, 0, fmt.Errorf("%w: total tokens: %v", dexerr.ErrStoreIO, scanErr)
	}
	return input, output, nil
}

// CountSince returns the number of messages belonging to conversations
// created at or after since.
func (r *MessageRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages m
		JOIN conversations c ON c.id = m.conversation_id WHERE c.created_at >= ?`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count messages: %v", dexerr.ErrStoreIO, err)
	}
	return n, nil
}
