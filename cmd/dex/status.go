package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const statusPeriodDays = 30

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize what dex has indexed",
	Long: `status reports conversation and message counts, a per-source breakdown,
and the current daily-activity streak over the trailing 30 days.`,
	RunE: runStatus,
}

type statusReport struct {
	PeriodDays         int            `json:"period_days"`
	TotalConversations int            `json:"total_conversations"`
	TotalMessages      int            `json:"total_messages"`
	SourceBreakdown    map[string]int `json:"source_breakdown"`
	InputTokens        int64          `json:"input_tokens"`
	OutputTokens       int64          `json:"output_tokens"`
	StreakDays         int            `json:"streak_days"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	since := time.Now().UTC().AddDate(0, 0, -statusPeriodDays)

	totalConvs, err := a.repos.Conversations.CountSince(ctx, since)
	if err != nil {
		return err
	}
	totalMessages, err := a.repos.Messages.CountSince(ctx, since)
	if err != nil {
		return err
	}
	breakdown, err := a.repos.Conversations.SourceBreakdown(ctx, since)
	if err != nil {
		return err
	}
	inputTokens, outputTokens, err := a.repos.Conversations.TotalTokens(ctx, since)
	if err != nil {
		return err
	}
	activeDates, err := a.repos.Conversations.ActiveDates(ctx, since)
	if err != nil {
		return err
	}

	report := statusReport{
		PeriodDays:         statusPeriodDays,
		TotalConversations: totalConvs,
		TotalMessages:      totalMessages,
		SourceBreakdown:    make(map[string]int, len(breakdown)),
		InputTokens:        inputTokens,
		OutputTokens:       outputTokens,
		StreakDays:         currentStreak(activeDates),
	}
	for _, sc := range breakdown {
		report.SourceBreakdown[sc.Source] = sc.Count
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("dex status (last %d days)", statusPeriodDays)))
	fmt.Printf("%s %d\n", labelStyle.Render("conversations:"), report.TotalConversations)
	fmt.Printf("%s %d\n", labelStyle.Render("messages:"), report.TotalMessages)
	fmt.Printf("%s %d in / %d out\n", labelStyle.Render("tokens:"), report.InputTokens, report.OutputTokens)
	fmt.Printf("%s %d day(s)\n", labelStyle.Render("current streak:"), report.StreakDays)
	for source, count := range report.SourceBreakdown {
		fmt.Printf("  %s: %d\n", source, count)
	}
	return nil
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
