package mcptools

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/retrieval"
	"github.com/tvergho/dex/internal/search"
	"github.com/tvergho/dex/internal/store"
)

func newTestServer(t *testing.T) (*Server, *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	repos := repository.New(st)
	searchSvc := search.New(repos, nil, nil)
	formatter := retrieval.New(repos)

	srv, err := New(Config{}, repos, searchSvc, formatter, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, repos
}

func seedConversationAt(t *testing.T, repos *repository.Repositories, id string, src model.Source, project string, createdAt time.Time) model.Conversation {
	t.Helper()
	ctx := context.Background()
	conv := model.Conversation{
		ID:           id,
		Source:       src,
		Title:        "conversation " + id,
		Project:      project,
		Mode:         model.ModeAgent,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Ref:          model.SourceRef{Source: src, OriginalID: id},
		InputTokens:  10,
		OutputTokens: 20,
	}
	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{conv}); err != nil {
		t.Fatalf("seed conversation %s: %v", id, err)
	}
	return conv
}

func seedMessageAt(t *testing.T, repos *repository.Repositories, convID string, index int, content string) model.Message {
	t.Helper()
	ctx := context.Background()
	m := model.Message{
		ID:             model.MessageID(convID, index),
		ConversationID: convID,
		Role:           model.RoleUser,
		Content:        content,
		MessageIndex:   index,
	}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{m}); err != nil {
		t.Fatalf("seed message in %s: %v", convID, err)
	}
	return m
}
