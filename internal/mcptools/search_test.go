package mcptools

import (
	"context"
	"testing"
	"time"

	"github.com/tvergho/dex/internal/model"
)

func TestHandleSearchRanksFreeTextMatches(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	now := time.Now().UTC()

	seedConversationAt(t, repos, "conv-widget", model.SourceCodex, "proj", now)
	seedMessageAt(t, repos, "conv-widget", 0, "please fix the widget rendering bug")

	seedConversationAt(t, repos, "conv-unrelated", model.SourceCodex, "proj", now)
	seedMessageAt(t, repos, "conv-unrelated", 0, "totally unrelated content")

	out, err := srv.handleSearch(ctx, searchInput{Query: "widget"})
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if out.Total != 1 || len(out.Results) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if out.Results[0].Conversation.ID != "conv-widget" {
		t.Fatalf("unexpected match: %+v", out.Results[0])
	}
	if !out.DegradedToFTS {
		t.Fatal("expected DegradedToFTS=true with no embedder configured")
	}
}

func TestHandleSearchRejectsEmptyQueryAndFile(t *testing.T) {
	srv, _ := newTestServer(t)
	if _, err := srv.handleSearch(context.Background(), searchInput{}); err == nil {
		t.Fatal("expected error for empty query and file")
	}
}

func TestHandleSearchComposesSourceFilterIntoQuery(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	now := time.Now().UTC()

	seedConversationAt(t, repos, "conv-codex", model.SourceCodex, "proj", now)
	seedMessageAt(t, repos, "conv-codex", 0, "debugging the auth flow")

	seedConversationAt(t, repos, "conv-cursor", model.SourceCursor, "proj", now)
	seedMessageAt(t, repos, "conv-cursor", 0, "debugging the auth flow")

	out, err := srv.handleSearch(ctx, searchInput{Query: "auth", Source: string(model.SourceCodex)})
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Conversation.ID != "conv-codex" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestHandleSearchFiltersByProject(t *testing.T) {
	ctx := context.Background()
	srv, repos := newTestServer(t)
	now := time.Now().UTC()

	seedConversationAt(t, repos, "conv-a", model.SourceCodex, "proj-a", now)
	seedMessageAt(t, repos, "conv-a", 0, "shared keyword appears here")

	seedConversationAt(t, repos, "conv-b", model.SourceCodex, "proj-b", now)
	seedMessageAt(t, repos, "conv-b", 0, "shared keyword appears here too")

	out, err := srv.handleSearch(ctx, searchInput{Query: "shared", Project: "proj-a"})
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Conversation.ID != "conv-a" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestHandleSearchRejectsUnknownSource(t *testing.T) {
	srv, _ := newTestServer(t)
	if _, err := srv.handleSearch(context.Background(), searchInput{Query: "x", Source: "bogus"}); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
