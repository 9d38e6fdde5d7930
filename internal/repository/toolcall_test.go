package repository

import (
	"context"
	"testing"

	"github.com/tvergho/dex/internal/model"
)

func TestToolCallBulkInsertAndFind(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msg := model.Message{ID: "c1:0", ConversationID: "c1", Role: model.RoleAssistant, Content: "ran a tool", MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{msg}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	calls := []model.ToolCall{
		{ID: "c1:0:tool:1", MessageID: "c1:0", ConversationID: "c1", ToolType: "bash", Input: "ls", Output: "a.go"},
		{ID: "c1:0:tool:2", MessageID: "c1:0", ConversationID: "c1", ToolType: "edit", FilePath: "a.go", IsError: true},
	}
	if err := repos.ToolCalls.BulkInsert(ctx, calls); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	got, err := repos.ToolCalls.FindByMessage(ctx, "c1:0")
	if err != nil {
		t.Fatalf("FindByMessage() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(got))
	}
	if !got[1].IsError {
		t.Fatal("expected second tool call to retain IsError=true")
	}
}
