package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
)

// truncationSuffix is appended to a message truncated to fit a max_tokens
// budget.
const truncationSuffix = "\n... (truncated)"

// minTruncatedTokens is the smallest remaining budget worth keeping a
// truncated message for; below this the message is omitted entirely.
const minTruncatedTokens = 100

// Formatter implements the get operation: it loads conversations and
// their messages and reconstructs them per the requested Options.
type Formatter struct {
	repos *repository.Repositories
}

// New builds a Formatter over repos.
func New(repos *repository.Repositories) *Formatter {
	return &Formatter{repos: repos}
}

// Get returns formatted content for each of ids, in the order requested.
// A missing id is skipped rather than failing the whole call.
func (f *Formatter) Get(ctx context.Context, ids []string, opts Options) ([]ConversationContent, error) {
	if opts.Format == "" {
		opts.Format = FormatFull
	}

	out := make([]ConversationContent, 0, len(ids))
	for _, id := range ids {
		conv, err := f.repos.Conversations.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, dexerr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		messages, err := f.repos.Messages.FindByConversation(ctx, id)
		if err != nil {
			return nil, err
		}

		window, hasMoreBefore, hasMoreAfter := applyExpand(messages, opts.Expand)
		formatted := applyFormat(window, opts.Format)
		formatted = applyMaxTokens(formatted, opts.MaxTokens)

		out = append(out, ConversationContent{
			Conversation:  conv,
			Messages:      formatted,
			HasMoreBefore: hasMoreBefore,
			HasMoreAfter:  hasMoreAfter,
		})
	}
	return out, nil
}

// applyExpand narrows messages to a window around Expand.MessageIndex, if
// set, and reports whether neighbors exist beyond the window on either
// side. messages must already be ordered by MessageIndex ascending.
func applyExpand(messages []model.Message, expand *ExpandWindow) ([]model.Message, bool, bool) {
	if expand == nil {
		return messages, false, false
	}
	before := expand.Before
	if before == 0 {
		before = defaultExpandBefore
	}
	after := expand.After
	if after == 0 {
		after = defaultExpandAfter
	}

	centerPos := -1
	for i, m := range messages {
		if m.MessageIndex == expand.MessageIndex {
			centerPos = i
			break
		}
	}
	if centerPos == -1 {
		return nil, false, false
	}

	start := centerPos - before
	hasMoreBefore := start > 0
	if start < 0 {
		start = 0
	}
	end := centerPos + after + 1
	hasMoreAfter := end < len(messages)
	if end > len(messages) {
		end = len(messages)
	}
	return messages[start:end], hasMoreBefore, hasMoreAfter
}

// applyFormat renders each message's content per format. user_only also
// filters the message set down to role=user.
func applyFormat(messages []model.Message, format Format) []FormattedMessage {
	out := make([]FormattedMessage, 0, len(messages))
	for _, m := range messages {
		if format == FormatUserOnly && m.Role != model.RoleUser {
			continue
		}
		content := m.Content
		switch format {
		case FormatStripped:
			content = strings.TrimSpace(StripToolOutput(content))
		case FormatOutline:
			content = outlineFor(m)
		}
		out = append(out, FormattedMessage{Message: m, Content: content})
	}
	return out
}

// outlineFor renders one outline summary line per § the outline format:
// "[Role] <first line, <=60 chars> (N tokens | tokens N/A)".
func outlineFor(m model.Message) string {
	firstLine := m.Content
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > 60 {
		firstLine = strings.TrimSpace(firstLine[:60])
	}

	label := "tokens N/A"
	if total := m.InputTokens + m.OutputTokens; total > 0 {
		label = fmt.Sprintf("%d tokens", total)
	}

	return fmt.Sprintf("[%s] %s (%s)", roleLabel(m.Role), firstLine, label)
}

func roleLabel(r model.Role) string {
	s := string(r)
	if s == "" {
		return "unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// tokenEstimate returns a message's token count, from stored counters
// when present, else ceil(len(content)/4).
func tokenEstimate(content string, m model.Message) int {
	if total := m.InputTokens + m.OutputTokens; total > 0 {
		return int(total)
	}
	return int(math.Ceil(float64(len(content)) / 4.0))
}

// applyMaxTokens truncates the message list from the end once the running
// token total would exceed maxTokens. The message straddling the budget
// is truncated in place if at least minTruncatedTokens of budget remains
// for it, otherwise it and everything after it are dropped.
func applyMaxTokens(messages []FormattedMessage, maxTokens int) []FormattedMessage {
	if maxTokens <= 0 {
		return messages
	}
	out := make([]FormattedMessage, 0, len(messages))
	running := 0
	for _, fm := range messages {
		tokens := tokenEstimate(fm.Content, fm.Message)
		if running+tokens <= maxTokens {
			out = append(out, fm)
			running += tokens
			continue
		}

		remaining := maxTokens - running
		if remaining >= minTruncatedTokens {
			maxChars := remaining * 4
			content := fm.Content
			if len(content) > maxChars {
				content = content[:maxChars]
			}
			out = append(out, FormattedMessage{Message: fm.Message, Content: content + truncationSuffix, Truncated: true})
		}
		break
	}
	return out
}
