package mcptools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
)

func TestHandleGetReturnsFormattedMessages(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	seedConversationAt(t, repos, "conv-1", model.SourceCodex, "proj", time.Now().UTC())
	seedMessageAt(t, repos, "conv-1", 0, "hello there")

	out, err := srv.handleGet(ctx, getInput{IDs: []string{"conv-1"}})
	if err != nil {
		t.Fatalf("handleGet() error = %v", err)
	}
	if len(out.Conversations) != 1 || len(out.Conversations[0].Messages) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Conversations[0].Messages[0].Content != "hello there" {
		t.Fatalf("unexpected content: %+v", out.Conversations[0].Messages[0])
	}
}

func TestHandleGetRejectsEmptyIDs(t *testing.T) {
	srv, _ := newTestServer(t)
	if _, err := srv.handleGet(context.Background(), getInput{}); err == nil {
		t.Fatal("expected error for empty ids")
	}
}

func TestHandleGetRejectsUnknownFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	if _, err := srv.handleGet(context.Background(), getInput{IDs: []string{"x"}, Format: "bogus"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestHandleGetAppliesExpandWindow(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	seedConversationAt(t, repos, "conv-1", model.SourceCodex, "proj", time.Now().UTC())
	for i := 0; i < 10; i++ {
		seedMessageAt(t, repos, "conv-1", i, "msg")
	}

	out, err := srv.handleGet(ctx, getInput{IDs: []string{"conv-1"}, Expand: &expandInput{MessageIndex: 5}})
	if err != nil {
		t.Fatalf("handleGet() error = %v", err)
	}
	if len(out.Conversations[0].Messages) != 5 {
		t.Fatalf("expected 5-message window, got %d", len(out.Conversations[0].Messages))
	}
	if !out.Conversations[0].HasMoreBefore || !out.Conversations[0].HasMoreAfter {
		t.Fatalf("expected both has-more flags set: %+v", out.Conversations[0])
	}
}

func TestHandleGetStrippedFormatRemovesToolOutput(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	seedConversationAt(t, repos, "conv-1", model.SourceCodex, "proj", time.Now().UTC())
	ctxMsg := "see result\n---\n**Tool Output**\n```\nraw bytes\n```\n---\ndone"
	m := model.Message{ID: model.MessageID("conv-1", 0), ConversationID: "conv-1", Role: model.RoleAssistant, Content: ctxMsg, MessageIndex: 0}
	if err := repos.Messages.BulkInsert(ctx, []model.Message{m}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	out, err := srv.handleGet(ctx, getInput{IDs: []string{"conv-1"}, Format: "stripped"})
	if err != nil {
		t.Fatalf("handleGet() error = %v", err)
	}
	if strings.Contains(out.Conversations[0].Messages[0].Content, "raw bytes") {
		t.Fatalf("expected tool output stripped, got %q", out.Conversations[0].Messages[0].Content)
	}
}
