package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
)

type listInput struct {
	Project string `json:"project,omitempty" jsonschema:"Filter to conversations in this project"`
	Source  string `json:"source,omitempty" jsonschema:"Filter to one source: cursor, claude-code, or codex"`
	From    string `json:"from,omitempty" jsonschema:"Only conversations created on or after this date, YYYY-MM-DD"`
	To      string `json:"to,omitempty" jsonschema:"Only conversations created on or before this date (inclusive), YYYY-MM-DD"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum conversations to return (default: 20)"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Number of conversations to skip for pagination (default: 0)"`
}

type conversationSummary struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Title        string `json:"title"`
	Workspace    string `json:"workspace"`
	Project      string `json:"project"`
	Model        string `json:"model"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

type listOutput struct {
	Conversations []conversationSummary `json:"conversations"`
	Total         int                   `json:"total"`
}

const defaultListLimit = 20

func (s *Server) registerList() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list",
		Description: "List indexed conversations, newest first, filtered by project, source, and/or creation date range.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listInput) (*mcp.CallToolResult, listOutput, error) {
		out, err := s.handleList(ctx, args)
		return nil, out, err
	})
}

func (s *Server) handleList(ctx context.Context, args listInput) (listOutput, error) {
	if args.Source != "" && !isValidSource(args.Source) {
		return listOutput{}, fmt.Errorf("unknown source %q", args.Source)
	}
	from, to, err := parseDateRange(args.From, args.To)
	if err != nil {
		return listOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	convs, total, err := s.repos.Conversations.ListFiltered(ctx, repository.ListFilters{
		Source:  model.Source(args.Source),
		Project: args.Project,
		From:    from,
		To:      to,
		Limit:   limit,
		Offset:  args.Offset,
	})
	if err != nil {
		return listOutput{}, fmt.Errorf("list conversations: %w", err)
	}

	out := listOutput{Total: total}
	for _, c := range convs {
		out.Conversations = append(out.Conversations, summarize(c))
	}
	return out, nil
}

func summarize(c model.Conversation) conversationSummary {
	return conversationSummary{
		ID:           c.ID,
		Source:       string(c.Source),
		Title:        c.Title,
		Workspace:    c.Workspace,
		Project:      c.Project,
		Model:        c.Model,
		CreatedAt:    c.CreatedAt.Format(dateTimeLayout),
		UpdatedAt:    c.UpdatedAt.Format(dateTimeLayout),
		MessageCount: c.MessageCount,
	}
}

const dateTimeLayout = "2006-01-02T15:04:05Z07:00"

func isValidSource(s string) bool {
	switch model.Source(s) {
	case model.SourceCursor, model.SourceClaudeCode, model.SourceCodex:
		return true
	default:
		return false
	}
}
