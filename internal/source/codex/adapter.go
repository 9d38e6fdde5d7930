// Package codex implements the source.Adapter for Codex CLI's event-sourced
// rollout-<ISO>-<UUID>.jsonl session logs.
package codex

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/platform"
	"github.com/tvergho/dex/internal/source"
)

// Adapter reads Codex CLI's per-session JSONL rollout files.
type Adapter struct {
	sessionsDir string
}

func New() (*Adapter, error) {
	dir, err := platform.CodexSessionsDir()
	if err != nil {
		return nil, err
	}
	return &Adapter{sessionsDir: dir}, nil
}

func (a *Adapter) Source() model.Source { return model.SourceCodex }

func (a *Adapter) Detect(ctx context.Context) (bool, error) {
	info, err := os.Stat(a.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

var rolloutFilePattern = regexp.MustCompile(`^rollout-.*\.jsonl$`)

// Discover walks the sessions directory recursively (codex nests rollout
// files under year/month/day subdirectories) and returns one location per
// matching file.
func (a *Adapter) Discover(ctx context.Context) ([]source.SourceLocation, error) {
	var locs []source.SourceLocation
	err := filepath.WalkDir(a.sessionsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !rolloutFilePattern.MatchString(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil // unreadable entry, skip rather than fail the whole walk
		}
		locs = append(locs, source.SourceLocation{
			Source:       model.SourceCodex,
			VendorDBPath: path,
			Mtime:        float64(info.ModTime().Unix()),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return locs, nil
}

// Extract reads one rollout file line by line. A malformed line is skipped;
// the rest of the file is still processed.
func (a *Adapter) Extract(ctx context.Context, loc source.SourceLocation, progress source.ProgressFunc) ([]source.RawConversation, error) {
	f, err := os.Open(loc.VendorDBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open rollout file: %v", dexerr.ErrStoreIO, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var sess session
	var lineNo int
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev jsonlEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue // corrupt line, isolated per the adapter's tolerant-parse contract
		}
		if ev.Type == "session_meta" {
			sess.id = ev.Payload.ID
			sess.createdAt = ev.Timestamp
			sess.cwd = ev.Payload.CWD
		}
		sess.events = append(sess.events, ev)
		if progress != nil {
			progress(lineNo, 0)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan rollout file: %v", dexerr.ErrStoreIO, err)
	}
	if sess.id == "" || len(sess.events) == 0 {
		return nil, nil // no usable session_meta, or an empty session: skip
	}

	return []source.RawConversation{{Location: loc, VendorID: sess.id, Raw: sess}}, nil
}

// Normalize replays one session's events into dex's canonical schema.
// agent_reasoning text folds into the following assistant message instead
// of becoming its own row; function_call/custom_tool_call events attach to
// whichever assistant message is open at the time.
func (a *Adapter) Normalize(raw source.RawConversation) (model.NormalizedConversation, error) {
	sess, ok := raw.Raw.(session)
	if !ok {
		return model.NormalizedConversation{}, fmt.Errorf("%w: codex normalize: unexpected raw type", dexerr.ErrCorruptRecord)
	}

	convID := model.ConversationID(model.SourceCodex, sess.id)
	workspace := sess.cwd

	nc := model.NormalizedConversation{
		Conversation: model.Conversation{
			ID:        convID,
			Source:    model.SourceCodex,
			Mode:      model.ModeAgent,
			Workspace: workspace,
			Project:   platform.ProjectName(workspace),
			GitBranch: "",
			Ref: model.SourceRef{
				Source:        model.SourceCodex,
				OriginalID:    sess.id,
				WorkspacePath: workspace,
				VendorDBPath:  raw.Location.VendorDBPath,
			},
		},
	}

	var currentModel string
	var pendingReasoning []string
	var currentAssistantIdx = -1
	pendingTools := make(map[string]int) // call_id -> index into nc.ToolCalls
	msgIndex := 0

	newAssistantMessage := func(ts string) int {
		msg := model.Message{
			ID:             model.MessageID(convID, msgIndex),
			ConversationID: convID,
			Role:           model.RoleAssistant,
			Model:          currentModel,
		}
		applyTimestamp(&msg, ts)
		nc.Messages = append(nc.Messages, msg)
		idx := len(nc.Messages) - 1
		msgIndex++
		currentAssistantIdx = idx
		return idx
	}

	for _, ev := range sess.events {
		switch ev.Type {
		case "session_meta":
			// already consumed during Extract
		case "turn_context":
			if ev.Payload.Model != "" {
				currentModel = ev.Payload.Model
			}
		case "event_msg":
			switch ev.Payload.Type {
			case "user_message":
				if ev.Payload.Message == "" {
					continue
				}
				msg := model.Message{
					ID:             model.MessageID(convID, msgIndex),
					ConversationID: convID,
					Role:           model.RoleUser,
					Content:        ev.Payload.Message,
				}
				applyTimestamp(&msg, ev.Timestamp)
				nc.Messages = append(nc.Messages, msg)
				msgIndex++
				currentAssistantIdx = -1 // a fresh turn starts; don't fold into a stale assistant message

			case "agent_message":
				if ev.Payload.Message == "" {
					continue
				}
				idx := currentAssistantIdx
				if idx < 0 || nc.Messages[idx].Content != "" {
					idx = newAssistantMessage(ev.Timestamp)
				}
				content := ev.Payload.Message
				if len(pendingReasoning) > 0 {
					content = strings.Join(pendingReasoning, "\n\n") + "\n\n" + content
					pendingReasoning = nil
				}
				nc.Messages[idx].Content = content
				nc.Messages[idx].Model = currentModel

			case "agent_reasoning":
				if ev.Payload.Text != "" {
					pendingReasoning = append(pendingReasoning, ev.Payload.Text)
				}
			}

		case "response_item":
			switch ev.Payload.Type {
			case "function_call", "custom_tool_call":
				if ev.Payload.Name == "" {
					continue
				}
				idx := currentAssistantIdx
				if idx < 0 {
					idx = newAssistantMessage(ev.Timestamp)
				}
				input := ev.Payload.Arguments
				if ev.Payload.Type == "custom_tool_call" {
					input = ev.Payload.Input
				}
				tc := model.ToolCall{
					ID:             model.ToolCallID(nc.Messages[idx].ID, ev.Payload.CallID),
					MessageID:      nc.Messages[idx].ID,
					ConversationID: convID,
					ToolType:       ev.Payload.Name,
					Input:          input,
					FilePath:       extractFilePath(ev.Payload.Name, input),
				}
				nc.ToolCalls = append(nc.ToolCalls, tc)
				if ev.Payload.CallID != "" {
					pendingTools[ev.Payload.CallID] = len(nc.ToolCalls) - 1
				}
				if edit, ok := editFromApplyPatch(nc.Messages[idx].ID, convID, input); ok {
					nc.FileEdits = append(nc.FileEdits, edit)
				}

			case "function_call_output", "custom_tool_call_output":
				if i, ok := pendingTools[ev.Payload.CallID]; ok {
					nc.ToolCalls[i].Output = ev.Payload.Output
					nc.ToolCalls[i].IsError = strings.Contains(strings.ToLower(ev.Payload.Output), "\"error\"")
					delete(pendingTools, ev.Payload.CallID)
				}
			}
		}
	}

	// A trailing reasoning block never followed by agent text still carries
	// useful context; keep it rather than dropping it silently.
	if len(pendingReasoning) > 0 {
		msg := model.Message{
			ID:             model.MessageID(convID, msgIndex),
			ConversationID: convID,
			Role:           model.RoleAssistant,
			Content:        strings.Join(pendingReasoning, "\n\n"),
			Model:          currentModel,
		}
		nc.Messages = append(nc.Messages, msg)
		msgIndex++
	}

	for i := range nc.Messages {
		nc.Messages[i].MessageIndex = i
	}

	nc.Conversation.Model = currentModel
	nc.Conversation.MessageCount = len(nc.Messages)
	return nc, nil
}

func applyTimestamp(msg *model.Message, ts string) {
	if ts == "" {
		return
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return
	}
	msg.Timestamp = t
	msg.HasTimestamp = true
}

var pathFields = []string{"path", "file", "filename", "file_path"}

// extractFilePath pulls a single best-guess file path out of a tool's raw
// JSON input, checking common field names. apply_patch carries its paths in
// a patch body instead, handled separately by editFromApplyPatch.
func extractFilePath(toolName, input string) string {
	if input == "" {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(input), &decoded); err != nil {
		return ""
	}
	for _, field := range pathFields {
		if v, ok := decoded[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var patchMarkers = map[string]model.EditType{
	"*** Add File:":    model.EditCreate,
	"*** Create File:": model.EditCreate,
	"*** Update File:": model.EditModify,
	"*** Modify File:": model.EditModify,
	"*** Delete File:": model.EditDelete,
	"*** Remove File:": model.EditDelete,
}

// editFromApplyPatch recognizes apply_patch's "*** <Verb> File: <path>"
// header and turns it into a FileEdit; any other tool input is ignored.
func editFromApplyPatch(messageID, conversationID, input string) (model.FileEdit, bool) {
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		for marker, editType := range patchMarkers {
			if strings.HasPrefix(line, marker) {
				path := strings.TrimSpace(strings.TrimPrefix(line, marker))
				if path == "" {
					continue
				}
				return model.FileEdit{
					ID:             model.FileEditID(messageID, 0, path),
					MessageID:      messageID,
					ConversationID: conversationID,
					FilePath:       path,
					EditType:       editType,
				}, true
			}
		}
	}
	return model.FileEdit{}, false
}
