package retrieval

import "github.com/tvergho/dex/internal/model"

// Format selects how Get renders a message's content.
type Format string

const (
	FormatFull     Format = "full"
	FormatStripped Format = "stripped"
	FormatUserOnly Format = "user_only"
	FormatOutline  Format = "outline"
)

const (
	defaultExpandBefore = 2
	defaultExpandAfter  = 2
)

// ExpandWindow requests neighbors of one message index within a
// conversation rather than the whole transcript.
type ExpandWindow struct {
	MessageIndex int
	Before       int // 0 means defaultExpandBefore
	After        int // 0 means defaultExpandAfter
}

// Options controls how Get reconstructs each requested conversation.
type Options struct {
	Format    Format
	Expand    *ExpandWindow
	MaxTokens int // 0 means unlimited
}

// FormattedMessage is one message after format, window, and truncation
// have been applied.
type FormattedMessage struct {
	Message   model.Message
	Content   string
	Truncated bool
}

// ConversationContent is Get's per-conversation result.
type ConversationContent struct {
	Conversation  model.Conversation
	Messages      []FormattedMessage
	HasMoreBefore bool
	HasMoreAfter  bool
}
