package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/store"
)

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	repos := repository.New(s)
	return New(repos, nil, nil), repos
}

func seedConversation(t *testing.T, repos *repository.Repositories, id string, src model.Source, modelName string) {
	t.Helper()
	ctx := context.Background()
	conv := model.Conversation{
		ID:        id,
		Source:    src,
		Title:     "conversation " + id,
		Workspace: "/home/user/proj",
		Model:     modelName,
		Mode:      model.ModeAgent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Ref:       model.SourceRef{Source: src, OriginalID: id},
	}
	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{conv}); err != nil {
		t.Fatalf("seed conversation %s: %v", id, err)
	}
}

func seedMessage(t *testing.T, repos *repository.Repositories, convID string, index int, content string) model.Message {
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

func TestHybridSearchFTSOnlyRanksByRelevance(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t)

	seedConversation(t, repos, "conv-widget", model.SourceCodex, "gpt-4")
	seedMessage(t, repos, "conv-widget", 0, "please fix the widget rendering bug")

	seedConversation(t, repos, "conv-unrelated", model.SourceCodex, "gpt-4")
	seedMessage(t, repos, "conv-unrelated", 0, "totally unrelated content about bananas")

	result, err := svc.Search(ctx, "widget", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !result.DegradedToFTS {
		t.Fatalf("expected DegradedToFTS=true with no embedder configured")
	}
	if len(result.Conversations) != 1 {
		t.Fatalf("expected 1 conversation match, got %d: %+v", len(result.Conversations), result.Conversations)
	}
	if result.Conversations[0].Conversation.ID != "conv-widget" {
		t.Fatalf("unexpected match: %+v", result.Conversations[0])
	}
	if len(result.Conversations[0].Matches) != 1 {
		t.Fatalf("expected 1 message match, got %d", len(result.Conversations[0].Matches))
	}
}

func TestSearchFilterOnlyListsWithoutRanking(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t)

	seedConversation(t, repos, "conv-codex", model.SourceCodex, "o3")
	seedConversation(t, repos, "conv-cursor", model.SourceCursor, "gpt-4")

	result, err := svc.Search(ctx, "source:codex", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(result.Conversations))
	}
	if result.Conversations[0].Conversation.ID != "conv-codex" {
		t.Fatalf("unexpected match: %+v", result.Conversations[0])
	}
}

func TestSearchFileOnlyGroupsByConversation(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t)

	seedConversation(t, repos, "conv-a", model.SourceClaudeCode, "claude")
	seedMessage(t, repos, "conv-a", 0, "edited the main file")
	if err := repos.Files.BulkInsertFileEdits(ctx, []model.FileEdit{
		{ID: "edit-1", MessageID: model.MessageID("conv-a", 0), ConversationID: "conv-a", FilePath: "src/main.go", EditType: model.EditModify},
	}); err != nil {
		t.Fatalf("seed file edit: %v", err)
	}

	result, err := svc.Search(ctx, "file:main.go", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d: %+v", len(result.Conversations), result.Conversations)
	}
	if result.Conversations[0].Conversation.ID != "conv-a" {
		t.Fatalf("unexpected match: %+v", result.Conversations[0])
	}
	if result.Conversations[0].BestScore <= 0 {
		t.Fatalf("expected a positive file-role score, got %f", result.Conversations[0].BestScore)
	}
}

func TestSearchEmptyQueryReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t)
	seedConversation(t, repos, "conv-a", model.SourceCodex, "o3")
	seedMessage(t, repos, "conv-a", 0, "hello world")

	result, err := svc.Search(ctx, "", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Conversations) != 0 {
		t.Fatalf("expected no results for an empty query, got %d", len(result.Conversations))
	}
}

func TestGroupByConversationDropsWhitespaceOnlyMessages(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t)

	seedConversation(t, repos, "conv-a", model.SourceCodex, "o3")
	seedMessage(t, repos, "conv-a", 0, "   \n\t  ")

	fused := []fusedHit{{messageID: model.MessageID("conv-a", 0), score: 1.0}}
	result, err := svc.groupByConversation(ctx, fused, Query{FreeText: "anything"}, nil)
	if err != nil {
		t.Fatalf("groupByConversation() error = %v", err)
	}
	if len(result.Conversations) != 0 {
		t.Fatalf("expected whitespace-only message to be dropped, got %+v", result.Conversations)
	}
}

func TestSanitizeFTSQueryQuotesTerms(t *testing.T) {
	got := sanitizeFTSQuery(`widget "quoted" term`)
	want := `"widget" OR """quoted""" OR "term"`
	if got != want {
		t.Fatalf("sanitizeFTSQuery() = %q, want %q", got, want)
	}
}
