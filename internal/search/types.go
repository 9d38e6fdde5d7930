package search

import "github.com/tvergho/dex/internal/model"

// HighlightRange is a [Start,End) byte offset of a matched term within a
// MessageMatch's Snippet.
type HighlightRange struct {
	Start int
	End   int
}

// MessageMatch is one scored message hit, with enough context to render a
// result line without a second round trip to the store.
type MessageMatch struct {
	MessageID       string
	ConversationID  string
	Role            model.Role
	Score           float64
	Snippet         string
	HighlightRanges []HighlightRange
}

// ConversationMatch groups every MessageMatch found within one
// conversation, ranked by its best member.
type ConversationMatch struct {
	Conversation model.Conversation
	BestScore    float64
	Matches      []MessageMatch
}

// Result is the outcome of a Search call.
type Result struct {
	Conversations     []ConversationMatch
	TotalConversations int

	// DegradedToFTS reports whether the embedding endpoint was unreachable
	// and the search fell back to full-text-only ranking.
	DegradedToFTS bool
}
