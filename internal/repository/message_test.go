package repository

import (
	"context"
	"testing"

	"github.com/tvergho/dex/internal/model"
)

func TestSetVectorMarksMessageEmbedded(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msg := model.Message{ID: "c1:0", ConversationID: "c1", Role: model.RoleUser, Content: "hello", MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{msg}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	if err := repos.Messages.SetVector(ctx, "c1:0", []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("SetVector() error = %v", err)
	}

	got, err := repos.Messages.FindByID(ctx, "c1:0")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !got.Embedded() {
		t.Fatal("expected message to report embedded after SetVector")
	}
}

func TestUnembeddedBatchExcludesEmbedded(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msgs := []model.Message{
		{ID: "c1:0", ConversationID: "c1", Role: model.RoleUser, Content: "one", MessageIndex: 0},
		{ID: "c1:1", ConversationID: "c1", Role: model.RoleAssistant, Content: "two", MessageIndex: 1},
	}
	if err := repos.Messages.BulkInsert(ctx, msgs); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}
	if err := repos.Messages.SetVector(ctx, "c1:0", []float32{0.5, 0.5}); err != nil {
		t.Fatalf("SetVector() error = %v", err)
	}

	batch, err := repos.Messages.UnembeddedBatch(ctx, 10)
	if err != nil {
		t.Fatalf("UnembeddedBatch() error = %v", err)
	}
	if len(batch) != 1 || batch[0].ID != "c1:1" {
		t.Fatalf("unexpected unembedded batch: %+v", batch)
	}

	count, err := repos.Messages.CountUnembedded(ctx)
	if err != nil {
		t.Fatalf("CountUnembedded() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountUnembedded() = %d, want 1", count)
	}
}

func TestBulkInsertMessageIgnoresDuplicateID(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{sampleConversation("c1")}); err != nil {
		t.Fatalf("BulkUpsert() error = %v", err)
	}
	msg := model.Message{ID: "c1:0", ConversationID: "c1", Role: model.RoleUser, Content: "first", MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{msg}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}
	dup := msg
	dup.Content = "second"
	if err := repos.Messages.BulkInsert(ctx, []model.Message{dup}); err != nil {
		t.Fatalf("BulkInsert() duplicate error = %v", err)
	}

	got, err := repos.Messages.FindByID(ctx, "c1:0")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Content != "first" {
		t.Fatalf("expected insert-ignore semantics, got content %q", got.Content)
	}
}
