package codex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/source"
)

func writeRollout(t *testing.T, lines []any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollout-2026-01-01T00-00-00-11111111-1111-1111-1111-111111111111.jsonl")
	var sb strings.Builder
	for _, l := range lines {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal line: %v", err)
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write rollout file: %v", err)
	}
	return path
}

func TestExtractAndNormalizeBasicTurn(t *testing.T) {
	path := writeRollout(t, []any{
		map[string]any{
			"type":      "session_meta",
			"timestamp": "2026-01-01T00:00:00Z",
			"payload":   map[string]any{"id": "sess-1", "cwd": "/home/user/project"},
		},
		map[string]any{
			"type":    "turn_context",
			"payload": map[string]any{"model": "gpt-5-codex"},
		},
		map[string]any{
			"type":      "event_msg",
			"timestamp": "2026-01-01T00:00:01Z",
			"payload":   map[string]any{"type": "user_message", "message": "fix the build"},
		},
		map[string]any{
			"type":      "event_msg",
			"timestamp": "2026-01-01T00:00:02Z",
			"payload":   map[string]any{"type": "agent_reasoning", "text": "let me look at the error"},
		},
		map[string]any{
			"type": "response_item",
			"payload": map[string]any{
				"type":      "function_call",
				"name":      "shell",
				"call_id":   "call-1",
				"arguments": `{"command":"go build ./..."}`,
			},
		},
		map[string]any{
			"type":      "response_item",
			"payload":   map[string]any{"type": "function_call_output", "call_id": "call-1", "output": `{"output":"ok"}`},
		},
		map[string]any{
			"type":      "event_msg",
			"timestamp": "2026-01-01T00:00:03Z",
			"payload":   map[string]any{"type": "agent_message", "message": "fixed it"},
		},
	})

	a := &Adapter{sessionsDir: filepath.Dir(path)}
	loc := source.SourceLocation{Source: model.SourceCodex, VendorDBPath: path}
	raws, err := a.Extract(context.Background(), loc, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 raw conversation, got %d", len(raws))
	}

	nc, err := a.Normalize(raws[0])
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if nc.Conversation.Workspace != "/home/user/project" {
		t.Fatalf("unexpected workspace: %q", nc.Conversation.Workspace)
	}
	if len(nc.Messages) != 2 {
		t.Fatalf("expected 2 messages (user + assistant), got %d: %+v", len(nc.Messages), nc.Messages)
	}
	if nc.Messages[0].Role != model.RoleUser {
		t.Fatalf("expected first message to be user, got %q", nc.Messages[0].Role)
	}
	assistant := nc.Messages[1]
	if assistant.Role != model.RoleAssistant {
		t.Fatalf("expected second message to be assistant, got %q", assistant.Role)
	}
	if !strings.Contains(assistant.Content, "let me look at the error") {
		t.Fatalf("reasoning was not folded into assistant message: %q", assistant.Content)
	}
	if !strings.Contains(assistant.Content, "fixed it") {
		t.Fatalf("assistant message text missing: %q", assistant.Content)
	}
	if len(nc.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(nc.ToolCalls))
	}
	if nc.ToolCalls[0].Output == "" {
		t.Fatalf("expected tool call output to be matched by call_id")
	}
	if nc.ToolCalls[0].MessageID != assistant.ID {
		t.Fatalf("expected tool call to attach to the open assistant turn")
	}
}

func TestExtractSkipsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout-2026-01-01T00-00-00-22222222-2222-2222-2222-222222222222.jsonl")
	content := `{"type":"session_meta","timestamp":"2026-01-01T00:00:00Z","payload":{"id":"sess-2","cwd":"/tmp"}}
not valid json
{"type":"event_msg","timestamp":"2026-01-01T00:00:01Z","payload":{"type":"user_message","message":"hello"}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	a := &Adapter{sessionsDir: filepath.Dir(path)}
	loc := source.SourceLocation{Source: model.SourceCodex, VendorDBPath: path}
	raws, err := a.Extract(context.Background(), loc, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 raw conversation despite malformed line, got %d", len(raws))
	}
	nc, err := a.Normalize(raws[0])
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(nc.Messages) != 1 || nc.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages after skipping malformed line: %+v", nc.Messages)
	}
}

func TestDiscoverFindsNestedRolloutFiles(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "2026", "01", "01")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}
	rolloutPath := filepath.Join(nested, "rollout-2026-01-01T00-00-00-33333333-3333-3333-3333-333333333333.jsonl")
	if err := os.WriteFile(rolloutPath, []byte(`{"type":"session_meta"}`), 0o644); err != nil {
		t.Fatalf("write rollout: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	a := &Adapter{sessionsDir: root}
	locs, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d: %+v", len(locs), locs)
	}
	if locs[0].VendorDBPath != rolloutPath {
		t.Fatalf("unexpected path: %q", locs[0].VendorDBPath)
	}
}
