package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
)

var (
	listLimit   int
	listSource  string
	listProject string
	listFrom    string
	listTo      string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed conversations, newest first",
	Long: `list prints indexed conversations without running a search.

Examples:
  dex list
  dex list -l 50
  dex list -s codex --project dex`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "maximum number of conversations to return")
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "filter by source: cursor, claude-code, codex")
	listCmd.Flags().StringVar(&listProject, "project", "", "filter by project name")
	listCmd.Flags().StringVar(&listFrom, "from", "", "only conversations created on or after this date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "only conversations created on or before this date (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if listSource != "" && !isValidSource(listSource) {
		return fmt.Errorf("%w: unknown source %q", dexerr.ErrInvalidInput, listSource)
	}
	from, to, err := parseDateRange(listFrom, listTo)
	if err != nil {
		return fmt.Errorf("%w: %v", dexerr.ErrInvalidInput, err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	convs, total, err := a.repos.Conversations.ListFiltered(ctx, repository.ListFilters{
		Source:  model.Source(listSource),
		Project: listProject,
		From:    from,
		To:      to,
		Limit:   listLimit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(struct {
			Conversations []model.Conversation `json:"conversations"`
			Total         int                  `json:"total"`
		}{convs, total})
	}

	for _, c := range convs {
		fmt.Printf("%s  %s  %s\n",
			headerStyle.Render(c.ID),
			labelStyle.Render(formatTime(c.CreatedAt)),
			valueStyle.Render(conversationTitle(c)))
		fmt.Printf("  %s\n", labelStyle.Render(fmt.Sprintf("%s · %s · %d messages", c.Source, c.Project, c.MessageCount)))
	}
	fmt.Printf("%d of %d total\n", len(convs), total)
	return nil
}

func isValidSource(s string) bool {
	switch model.Source(s) {
	case model.SourceCursor, model.SourceClaudeCode, model.SourceCodex:
		return true
	default:
		return false
	}
}
