package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type statsInput struct {
	PeriodDays int `json:"period_days,omitempty" jsonschema:"Number of trailing days to summarize (default: 30)"`
}

type sourceBreakdownEntry struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type projectEntry struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

type statsOutput struct {
	PeriodDays         int                    `json:"period_days"`
	TotalConversations int                    `json:"total_conversations"`
	TotalMessages      int                    `json:"total_messages"`
	SourceBreakdown    []sourceBreakdownEntry `json:"source_breakdown"`
	TopProjects        []projectEntry         `json:"top_projects"`
	InputTokens        int64                  `json:"input_tokens"`
	OutputTokens       int64                  `json:"output_tokens"`
	StreakDays         int                    `json:"streak_days"`
}

const defaultStatsPeriodDays = 30
const topProjectsLimit = 10

func (s *Server) registerStats() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stats",
		Description: "Summarize indexed conversation activity over a trailing window: overview counters, per-source breakdown, top projects, token totals, and the current daily streak.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args statsInput) (*mcp.CallToolResult, statsOutput, error) {
		out, err := s.handleStats(ctx, args)
		return nil, out, err
	})
}

func (s *Server) handleStats(ctx context.Context, args statsInput) (statsOutput, error) {
	periodDays := args.PeriodDays
	if periodDays <= 0 {
		periodDays = defaultStatsPeriodDays
	}
	since := time.Now().UTC().AddDate(0, 0, -periodDays)

	totalConvs, err := s.repos.Conversations.CountSince(ctx, since)
	if err != nil {
		return statsOutput{}, fmt.Errorf("count conversations: %w", err)
	}
	totalMessages, err := s.repos.Messages.CountSince(ctx, since)
	if err != nil {
		return statsOutput{}, fmt.Errorf("count messages: %w", err)
	}
	sources, err := s.repos.Conversations.SourceBreakdown(ctx, since)
	if err != nil {
		return statsOutput{}, fmt.Errorf("source breakdown: %w", err)
	}
	projects, err := s.repos.Conversations.TopProjects(ctx, since, topProjectsLimit)
	if err != nil {
		return statsOutput{}, fmt.Errorf("top projects: %w", err)
	}
	inputTokens, outputTokens, err := s.repos.Conversations.TotalTokens(ctx, since)
	if err != nil {
		return statsOutput{}, fmt.Errorf("total tokens: %w", err)
	}
	activeDates, err := s.repos.Conversations.ActiveDates(ctx, since)
	if err != nil {
		return statsOutput{}, fmt.Errorf("active dates: %w", err)
	}

	out := statsOutput{
		PeriodDays:         periodDays,
		TotalConversations: totalConvs,
		TotalMessages:      totalMessages,
		InputTokens:        inputTokens,
		OutputTokens:       outputTokens,
		StreakDays:         currentStreak(activeDates),
	}
	for _, sc := range sources {
		out.SourceBreakdown = append(out.SourceBreakdown, sourceBreakdownEntry{Source: sc.Source, Count: sc.Count})
	}
	for _, pc := range projects {
		out.TopProjects = append(out.TopProjects, projectEntry{Project: pc.Project, Count: pc.Count})
	}
	return out, nil
}

// currentStreak counts consecutive calendar days with activity, walking
// backward from today until a gap is found.
func currentStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	active := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		active[d.Truncate(24*time.Hour)] = true
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	streak := 0
	for active[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
