package repository

import (
	"context"
	"testing"

	"github.com/tvergho/dex/internal/model"
)

func TestFileSearchDeduplicatesToHighestRole(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msg := model.Message{ID: "c1:0", ConversationID: "c1", Role: model.RoleAssistant, Content: "edited it", MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{msg}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	if err := repos.Files.BulkInsertConversationFiles(ctx, []model.ConversationFile{
		{ID: "cf1", ConversationID: "c1", FilePath: "internal/handler.go", Role: model.FileRoleMentioned},
	}); err != nil {
		t.Fatalf("BulkInsertConversationFiles() error = %v", err)
	}
	if err := repos.Files.BulkInsertMessageFiles(ctx, []model.MessageFile{
		{ID: "mf1", MessageID: "c1:0", ConversationID: "c1", FilePath: "internal/handler.go", Role: model.FileRoleEdited},
	}); err != nil {
		t.Fatalf("BulkInsertMessageFiles() error = %v", err)
	}

	matches, err := repos.Files.Search(ctx, "handler.go", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one deduplicated match, got %d: %+v", len(matches), matches)
	}
	if matches[0].Role != model.FileRoleEdited {
		t.Fatalf("expected highest-scoring role %q, got %q", model.FileRoleEdited, matches[0].Role)
	}
	if matches[0].Score != 1.0 {
		t.Fatalf("expected score 1.0 for edited role, got %v", matches[0].Score)
	}
}

func TestFileSearchIsCaseInsensitiveAndSortsByScore(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	if err := repos.Files.BulkInsertConversationFiles(ctx, []model.ConversationFile{
		{ID: "cf1", ConversationID: "c1", FilePath: "README.md", Role: model.FileRoleMentioned},
		{ID: "cf2", ConversationID: "c1", FilePath: "pkg/readme_helper.go", Role: model.FileRoleContext},
	}); err != nil {
		t.Fatalf("BulkInsertConversationFiles() error = %v", err)
	}

	matches, err := repos.Files.Search(ctx, "readme", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %d: %+v", len(matches), matches)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatalf("expected results sorted by score descending, got %+v", matches)
	}
}

func TestBulkInsertFileEdits(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msg := model.Message{ID: "c1:0", ConversationID: "c1", Role: model.RoleAssistant, Content: "patched", MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{msg}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	edit := model.FileEdit{
		ID: "e1", MessageID: "c1:0", ConversationID: "c1", FilePath: "main.go",
		EditType: model.EditModify, LinesAdded: 4, LinesRemoved: 1,
	}
	if err := repos.Files.BulkInsertFileEdits(ctx, []model.FileEdit{edit}); err != nil {
		t.Fatalf("BulkInsertFileEdits() error = %v", err)
	}
}
