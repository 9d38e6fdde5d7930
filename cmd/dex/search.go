package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvergho/dex/internal/search"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search indexed conversations",
	Long: `search runs a hybrid (lexical + semantic) query across every indexed
conversation. The query accepts the same inline filters the MCP search
tool does: source:<name>, model:<name>, file:<path>.

Examples:
  dex search fix the race condition in the worker
  dex search file:internal/sync/orchestrator.go
  dex search source:codex retry logic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "maximum number of conversations to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.search.Search(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	printSearchResult(result)
	return nil
}

func printSearchResult(result search.Result) {
	if len(result.Conversations) == 0 {
		fmt.Println("no matches")
		return
	}
	if result.DegradedToFTS {
		fmt.Fprintln(os.Stderr, errorStyle.Render("embedding endpoint unavailable; showing full-text matches only"))
	}
	for _, cm := range result.Conversations {
		fmt.Printf("%s  %s  %s\n",
			headerStyle.Render(cm.Conversation.ID),
			scoreStyle.Render(fmt.Sprintf("%.3f", cm.BestScore)),
			valueStyle.Render(conversationTitle(cm.Conversation)))
		fmt.Printf("  %s\n", labelStyle.Render(fmt.Sprintf("%s · %s · %d messages", cm.Conversation.Source, cm.Conversation.Project, cm.Conversation.MessageCount)))
		for _, m := range cm.Matches {
			fmt.Printf("  [%s] %s\n", m.Role, m.Snippet)
		}
		fmt.Println()
	}
	fmt.Printf("%d of %d total\n", len(result.Conversations), result.TotalConversations)
}
