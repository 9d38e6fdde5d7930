package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tvergho/dex/internal/search"
)

type searchInput struct {
	Query   string `json:"query" jsonschema:"required,Free-text search query. Supports source:<name>, model:<substr>, and file:<pattern> prefixes inline."`
	File    string `json:"file,omitempty" jsonschema:"Restrict results to conversations touching a file path matching this substring"`
	Project string `json:"project,omitempty" jsonschema:"Restrict results to this project"`
	Source  string `json:"source,omitempty" jsonschema:"Restrict results to one source: cursor, claude-code, or codex"`
	From    string `json:"from,omitempty" jsonschema:"Only conversations created on or after this date, YYYY-MM-DD"`
	To      string `json:"to,omitempty" jsonschema:"Only conversations created on or before this date (inclusive), YYYY-MM-DD"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum conversations to return (default: 10)"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Number of conversations to skip for pagination (default: 0)"`
}

type highlightOutput struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type messageMatchOutput struct {
	MessageID  string            `json:"message_id"`
	Role       string            `json:"role"`
	Score      float64           `json:"score"`
	Snippet    string            `json:"snippet"`
	Highlights []highlightOutput `json:"highlights"`
}

type conversationMatchOutput struct {
	Conversation conversationSummary  `json:"conversation"`
	Score        float64              `json:"score"`
	Matches      []messageMatchOutput `json:"matches"`
}

type searchOutput struct {
	Results       []conversationMatchOutput `json:"results"`
	Total         int                       `json:"total"`
	DegradedToFTS bool                      `json:"degraded_to_fts"`
}

const defaultSearchLimit = 10

func (s *Server) registerSearch() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid full-text and semantic search over indexed conversations, ranked by reciprocal rank fusion, with an optional file path, project, source, and date filter.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		out, err := s.handleSearch(ctx, args)
		return nil, out, err
	})
}

func (s *Server) handleSearch(ctx context.Context, args searchInput) (searchOutput, error) {
	if args.Query == "" && args.File == "" {
		return searchOutput{}, fmt.Errorf("query is required")
	}
	if args.Source != "" && !isValidSource(args.Source) {
		return searchOutput{}, fmt.Errorf("unknown source %q", args.Source)
	}
	from, to, err := parseDateRange(args.From, args.To)
	if err != nil {
		return searchOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	raw := buildQuery(args)
	// Overfetch enough to satisfy offset+limit after filters that the
	// query language doesn't express (project, date range).
	result, err := s.search.Search(ctx, raw, limit+args.Offset+limit)
	if err != nil {
		return searchOutput{}, fmt.Errorf("search: %w", err)
	}

	filtered := make([]search.ConversationMatch, 0, len(result.Conversations))
	for _, cm := range result.Conversations {
		if args.Project != "" && cm.Conversation.Project != args.Project {
			continue
		}
		if !from.IsZero() && cm.Conversation.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !cm.Conversation.CreatedAt.Before(to) {
			continue
		}
		filtered = append(filtered, cm)
	}

	out := searchOutput{Total: len(filtered), DegradedToFTS: result.DegradedToFTS}
	end := args.Offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	start := args.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	for _, cm := range filtered[start:end] {
		out.Results = append(out.Results, toConversationMatchOutput(cm))
	}
	return out, nil
}

// buildQuery folds the search tool's structured source/file filters into
// the free-text query language that search.Service understands.
func buildQuery(args searchInput) string {
	var b strings.Builder
	b.WriteString(args.Query)
	if args.Source != "" {
		fmt.Fprintf(&b, " source:%s", args.Source)
	}
	if args.File != "" {
		fmt.Fprintf(&b, " file:%s", args.File)
	}
	return strings.TrimSpace(b.String())
}

func toConversationMatchOutput(cm search.ConversationMatch) conversationMatchOutput {
	out := conversationMatchOutput{
		Conversation: summarize(cm.Conversation),
		Score:        cm.BestScore,
	}
	for _, m := range cm.Matches {
		mo := messageMatchOutput{
			MessageID: m.MessageID,
			Role:      string(m.Role),
			Score:     m.Score,
			Snippet:   m.Snippet,
		}
		for _, h := range m.HighlightRanges {
			mo.Highlights = append(mo.Highlights, highlightOutput{Start: h.Start, End: h.End})
		}
		out.Matches = append(out.Matches, mo)
	}
	return out
}
