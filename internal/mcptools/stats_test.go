package mcptools

import (
	"context"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
)

func TestHandleStatsCountsWithinPeriod(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)

	now := time.Now().UTC()
	seedConversationAt(t, repos, "recent", model.SourceCodex, "proj-a", now)
	seedConversationAt(t, repos, "old", model.SourceCursor, "proj-b", now.AddDate(0, 0, -90))

	out, err := srv.handleStats(ctx, statsInput{PeriodDays: 30})
	if err != nil {
		t.Fatalf("handleStats() error = %v", err)
	}
	if out.TotalConversations != 1 {
		t.Fatalf("TotalConversations = %d, want 1", out.TotalConversations)
	}
	if len(out.SourceBreakdown) != 1 || out.SourceBreakdown[0].Source != string(model.SourceCodex) {
		t.Fatalf("unexpected source breakdown: %+v", out.SourceBreakdown)
	}
}

func TestHandleStatsDefaultsPeriodDays(t *testing.T) {
	srv, _ := newTestServer(t)
	out, err := srv.handleStats(context.Background(), statsInput{})
	if err != nil {
		t.Fatalf("handleStats() error = %v", err)
	}
	if out.PeriodDays != defaultStatsPeriodDays {
		t.Fatalf("PeriodDays = %d, want %d", out.PeriodDays, defaultStatsPeriodDays)
	}
}

func TestCurrentStreakCountsConsecutiveDaysFromToday(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dates := []time.Time{today, today.AddDate(0, 0, -1), today.AddDate(0, 0, -2)}
	if got := currentStreak(dates); got != 3 {
		t.Fatalf("currentStreak() = %d, want 3", got)
	}
}

func TestCurrentStreakStopsAtGap(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dates := []time.Time{today, today.AddDate(0, 0, -3)}
	if got := currentStreak(dates); got != 1 {
		t.Fatalf("currentStreak() = %d, want 1", got)
	}
}

func TestCurrentStreakZeroWithoutTodayActivity(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dates := []time.Time{today.AddDate(0, 0, -1)}
	if got := currentStreak(dates); got != 0 {
		t.Fatalf("currentStreak() = %d, want 0", got)
	}
}
