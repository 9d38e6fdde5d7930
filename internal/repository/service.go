package repository

import "github.com/tvergho/dex/internal/store"

// New builds the full set of entity repositories over s.
func New(s *store.Store) *Repositories {
	db := s.DB()
	return &Repositories{
		Conversations: &ConversationRepo{db: db},
		Messages:      &MessageRepo{db: db},
		ToolCalls:     &ToolCallRepo{db: db},
		Files:         &FileRepo{db: db},
		Syncs:         &SyncStateRepo{db: db},
	}
}
