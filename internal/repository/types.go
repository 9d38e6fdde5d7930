package repository

// Repositories bundles every entity repository over one store, so callers
// (sync, search, cmd) hold a single value instead of wiring each repo by
// hand.
type Repositories struct {
	Conversations *ConversationRepo
	Messages      *MessageRepo
	ToolCalls     *ToolCallRepo
	Files         *FileRepo
	Syncs         *SyncStateRepo
}
