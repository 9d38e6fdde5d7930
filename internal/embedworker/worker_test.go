package embedworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/embeddings"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/spawn"
	"github.com/tvergho/dex/internal/store"
)

func newTestRepos(t *testing.T) (*repository.Repositories, string) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return repository.New(s), dbPath
}

func seedPendingMessages(t *testing.T, repos *repository.Repositories, convID string, n int) {
	t.Helper()
	ctx := context.Background()
	conv := model.Conversation{
		ID:        convID,
		Source:    model.SourceCodex,
		Workspace: "/home/user/proj",
		Mode:      model.ModeAgent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Ref:       model.SourceRef{Source: model.SourceCodex, OriginalID: convID},
	}
	if err := repos.Conversations.BulkUpsert(ctx, []model.Conversation{conv}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	var msgs []model.Message
	for i := 0; i < n; i++ {
		msgs = append(msgs, model.Message{
			ID:             model.MessageID(convID, i),
			ConversationID: convID,
			Role:           model.RoleUser,
			Content:        "message body",
			MessageIndex:   i,
		})
	}
	if err := repos.Messages.BulkInsert(ctx, msgs); err != nil {
		t.Fatalf("seed messages: %v", err)
	}
}

func fakeEmbeddingsServer(t *testing.T, dim int) *embeddings.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":` + vectorsJSON(dim, r) + `}`))
	}))
	t.Cleanup(srv.Close)
	client, err := embeddings.NewClient(embeddings.Config{BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func vectorsJSON(dim int, r *http.Request) string {
	var body struct {
		Input []string `json:"input"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	out := "["
	for i := range body.Input {
		if i > 0 {
			out += ","
		}
		out += `{"embedding":[`
		for j := 0; j < dim; j++ {
			if j > 0 {
				out += ","
			}
			out += "0.5"
		}
		out += "]}"
	}
	return out + "]"
}

func TestRunEmbedsAllPendingMessages(t *testing.T) {
	ctx := context.Background()
	repos, dbPath := newTestRepos(t)
	seedPendingMessages(t, repos, "conv-1", 5)

	client := fakeEmbeddingsServer(t, 3)
	cfg := config.WorkerConfig{BatchSize: 2, Concurrency: 2, MaxRetries: 1}
	w := New(repos, client, cfg, dbPath, nil)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pending, err := repos.Messages.CountUnembedded(ctx)
	if err != nil {
		t.Fatalf("CountUnembedded() error = %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected 0 pending messages after Run, got %d", pending)
	}

	progress, ok, err := spawn.ReadProgress(spawn.ProgressFile(dbPath))
	if err != nil || !ok {
		t.Fatalf("expected a progress sentinel, ok=%v err=%v", ok, err)
	}
	if progress.Status != spawn.StatusDone || progress.Completed != 5 {
		t.Fatalf("unexpected final progress: %+v", progress)
	}
}

func TestRunIsNoOpWhenNothingPending(t *testing.T) {
	ctx := context.Background()
	repos, dbPath := newTestRepos(t)
	client := fakeEmbeddingsServer(t, 3)
	w := New(repos, client, config.WorkerConfig{BatchSize: 10, Concurrency: 1, MaxRetries: 1}, dbPath, nil)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	progress, ok, err := spawn.ReadProgress(spawn.ProgressFile(dbPath))
	if err != nil || !ok {
		t.Fatalf("expected a progress sentinel, ok=%v err=%v", ok, err)
	}
	if progress.Status != spawn.StatusDone || progress.Total != 0 {
		t.Fatalf("unexpected progress for empty queue: %+v", progress)
	}
}

func TestRunStopsGracefullyOnCanceledContext(t *testing.T) {
	repos, dbPath := newTestRepos(t)
	seedPendingMessages(t, repos, "conv-1", 4)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":` + vectorsJSON(3, r) + `}`))
	}))
	defer srv.Close()
	client, err := embeddings.NewClient(embeddings.Config{BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(repos, client, config.WorkerConfig{BatchSize: 2, Concurrency: 1, MaxRetries: 1}, dbPath, nil)
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() with canceled context should return nil, got %v", err)
	}

	progress, ok, err := spawn.ReadProgress(spawn.ProgressFile(dbPath))
	if err != nil || !ok {
		t.Fatalf("expected a progress sentinel, ok=%v err=%v", ok, err)
	}
	if progress.Status != spawn.StatusIdle {
		t.Fatalf("expected idle status on cancellation, got %+v", progress)
	}
}
