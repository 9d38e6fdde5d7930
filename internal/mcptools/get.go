package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tvergho/dex/internal/retrieval"
)

type expandInput struct {
	MessageIndex int `json:"message_index" jsonschema:"required,Index of the message to center the window on"`
	Before       int `json:"before,omitempty" jsonschema:"Messages to include before the center (default: 2)"`
	After        int `json:"after,omitempty" jsonschema:"Messages to include after the center (default: 2)"`
}

type getInput struct {
	IDs       []string     `json:"ids" jsonschema:"required,Conversation ids to fetch"`
	Format    string       `json:"format,omitempty" jsonschema:"One of full, stripped, user_only, outline (default: full)"`
	Expand    *expandInput `json:"expand,omitempty" jsonschema:"Return only a window of messages around one message index"`
	MaxTokens int          `json:"max_tokens,omitempty" jsonschema:"Truncate the conversation's messages, from the end, to fit this token budget"`
}

type formattedMessageOutput struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

type conversationContentOutput struct {
	Conversation  conversationSummary      `json:"conversation"`
	Messages      []formattedMessageOutput `json:"messages"`
	HasMoreBefore bool                     `json:"has_more_before"`
	HasMoreAfter  bool                     `json:"has_more_after"`
}

type getOutput struct {
	Conversations []conversationContentOutput `json:"conversations"`
}

func (s *Server) registerGet() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get",
		Description: "Fetch full conversation content by id, with optional format, neighbor-window expansion, and token-budget truncation.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getInput) (*mcp.CallToolResult, getOutput, error) {
		out, err := s.handleGet(ctx, args)
		return nil, out, err
	})
}

func (s *Server) handleGet(ctx context.Context, args getInput) (getOutput, error) {
	if len(args.IDs) == 0 {
		return getOutput{}, fmt.Errorf("ids is required")
	}

	opts := retrieval.Options{
		Format:    retrieval.Format(args.Format),
		MaxTokens: args.MaxTokens,
	}
	switch opts.Format {
	case "", retrieval.FormatFull, retrieval.FormatStripped, retrieval.FormatUserOnly, retrieval.FormatOutline:
	default:
		return getOutput{}, fmt.Errorf("unknown format %q", args.Format)
	}
	if args.Expand != nil {
		opts.Expand = &retrieval.ExpandWindow{
			MessageIndex: args.Expand.MessageIndex,
			Before:       args.Expand.Before,
			After:        args.Expand.After,
		}
	}

	results, err := s.formatter.Get(ctx, args.IDs, opts)
	if err != nil {
		return getOutput{}, fmt.Errorf("get: %w", err)
	}

	out := getOutput{}
	for _, cc := range results {
		cco := conversationContentOutput{
			Conversation:  summarize(cc.Conversation),
			HasMoreBefore: cc.HasMoreBefore,
			HasMoreAfter:  cc.HasMoreAfter,
		}
		for _, m := range cc.Messages {
			cco.Messages = append(cco.Messages, formattedMessageOutput{
				MessageID: m.Message.ID,
				Role:      string(m.Message.Role),
				Content:   m.Content,
				Truncated: m.Truncated,
			})
		}
		out.Conversations = append(out.Conversations, cco)
	}
	return out, nil
}
