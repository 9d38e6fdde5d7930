package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/retrieval"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one conversation in full",
	Long: `show retrieves a single conversation by id and prints its messages.

Examples:
  dex show claude-code:a1b2c3
  dex show claude-code:a1b2c3 --format stripped`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", string(retrieval.FormatFull), "full, stripped, user-only, or outline")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format := retrieval.Format(showFormat)
	switch format {
	case retrieval.FormatFull, retrieval.FormatStripped, retrieval.FormatUserOnly, retrieval.FormatOutline:
	default:
		return fmt.Errorf("%w: unknown format %q", dexerr.ErrInvalidInput, showFormat)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.formatter.Get(ctx, []string{args[0]}, retrieval.Options{Format: format})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: conversation %q", dexerr.ErrNotFound, args[0])
	}
	content := results[0]

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(content)
	}

	fmt.Println(headerStyle.Render(conversationTitle(content.Conversation)))
	fmt.Println(labelStyle.Render(fmt.Sprintf("%s · %s · %s", content.Conversation.Source, content.Conversation.Project, formatTime(content.Conversation.CreatedAt))))
	fmt.Println()
	if content.HasMoreBefore {
		fmt.Println(labelStyle.Render("... earlier messages omitted ..."))
	}
	for _, m := range content.Messages {
		fmt.Printf("--- %s ---\n%s\n\n", m.Message.Role, m.Content)
	}
	if content.HasMoreAfter {
		fmt.Println(labelStyle.Render("... later messages omitted ..."))
	}
	return nil
}
