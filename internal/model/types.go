// Package model defines the normalized schema that every source adapter
// extracts into and every repository persists. Types here are pure data:
// no I/O, no vendor-specific knowledge.
package model

import "time"

// Source tags the vendor a conversation was extracted from.
type Source string

const (
	SourceCursor     Source = "cursor"
	SourceClaudeCode Source = "claude-code"
	SourceCodex      Source = "codex"
)

// Mode is the interaction mode a conversation was conducted in.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeEdit  Mode = "edit"
	ModeAgent Mode = "agent"
)

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// FileRole distinguishes how a file relates to a conversation or message.
type FileRole string

const (
	FileRoleContext   FileRole = "context"
	FileRoleEdited    FileRole = "edited"
	FileRoleMentioned FileRole = "mentioned"
)

// EditType is the kind of mutation a FileEdit represents.
type EditType string

const (
	EditCreate EditType = "create"
	EditModify EditType = "modify"
	EditDelete EditType = "delete"
)

// SourceRef is the back-pointer to where a Conversation came from. It is
// embedded data inside Conversation and never shared across rows.
type SourceRef struct {
	Source        Source `json:"source"`
	WorkspacePath string `json:"workspace_path"`
	OriginalID    string `json:"original_id"`
	VendorDBPath  string `json:"vendor_db_path"`
}

// Conversation is the top-level normalized record for one vendor session.
type Conversation struct {
	ID          string
	Source      Source
	Title       string
	Subtitle    string
	Workspace   string
	Project     string
	Model       string
	Mode        Mode
	GitBranch   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	MessageCount int

	Ref SourceRef

	InputTokens        int64
	OutputTokens       int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	LinesAdded          int64
	LinesRemoved        int64
}

// Message is one turn within a Conversation.
type Message struct {
	ID             string // "{conversation_id}:{message_index}"
	ConversationID string
	Role           Role
	Content        string
	Timestamp      time.Time
	HasTimestamp   bool
	MessageIndex   int
	Model          string

	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	LinesAdded          int64
	LinesRemoved        int64

	Vector []float32
}

// Embedded reports whether the vector has been written by the embedding
// worker, i.e. it is not the all-zero placeholder.
func (m Message) Embedded() bool {
	return VectorEmbedded(m.Vector)
}

// VectorEmbedded reports whether v is not the all-zero placeholder vector.
func VectorEmbedded(v []float32) bool {
	for _, c := range v {
		if c != 0 {
			return true
		}
	}
	return false
}

// ToolCall is one tool invocation attached to a Message.
type ToolCall struct {
	ID             string // "{message_id}:tool:{vendor_tool_id}"
	MessageID      string
	ConversationID string
	ToolType       string
	Input          string
	Output         string
	FilePath       string
	IsError        bool
}

// ConversationFile records a file touched at the conversation level
// (used by adapters that aggregate file context per session, e.g. codex).
type ConversationFile struct {
	ID             string
	ConversationID string
	FilePath       string
	Role           FileRole
}

// MessageFile records a file touched at the message level (used by
// adapters that track per-message file context, e.g. cursor).
type MessageFile struct {
	ID             string
	MessageID      string
	ConversationID string
	FilePath       string
	Role           FileRole
}

// FileEdit is one concrete edit operation extracted from a message.
type FileEdit struct {
	ID             string // deterministic: sha256("{message_id}:edit:{ordinal}:{file_path}")
	MessageID      string
	ConversationID string
	FilePath       string
	EditType       EditType
	LinesAdded     int64
	LinesRemoved   int64
	StartLine      int
	EndLine        int
	HasLineRange   bool
}

// SyncState tracks incremental-sync progress for one vendor location.
type SyncState struct {
	Source        Source
	VendorDBPath  string
	WorkspacePath string
	LastSyncedAt  time.Time
	LastMtime     float64
}

// NormalizedConversation is the bundle an adapter hands to the orchestrator
// for one vendor session.
type NormalizedConversation struct {
	Conversation      Conversation
	Messages          []Message
	ToolCalls         []ToolCall
	ConversationFiles []ConversationFile
	MessageFiles      []MessageFile
	FileEdits         []FileEdit
}
