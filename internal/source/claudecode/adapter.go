// Package claudecode implements the source.Adapter for Claude Code's
// per-project JSONL session transcripts.
package claudecode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/platform"
	"github.com/tvergho/dex/internal/source"
)

// Adapter reads Claude Code's ~/.claude/projects/<project-hash>/*.jsonl
// transcripts, one file per session (including sub-agent sessions, whose
// files are prefixed "agent-").
type Adapter struct {
	projectsDir string
}

func New() (*Adapter, error) {
	dir, err := platform.ClaudeCodeProjectsDir()
	if err != nil {
		return nil, err
	}
	return &Adapter{projectsDir: dir}, nil
}

func (a *Adapter) Source() model.Source { return model.SourceClaudeCode }

func (a *Adapter) Detect(ctx context.Context) (bool, error) {
	info, err := os.Stat(a.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Discover walks every project-hash subdirectory for *.jsonl session
// files, one location per file.
func (a *Adapter) Discover(ctx context.Context) ([]source.SourceLocation, error) {
	projectDirs, err := os.ReadDir(a.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var locs []source.SourceLocation
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		dirPath := filepath.Join(a.projectsDir, pd.Name())
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			continue // unreadable project dir, skip rather than fail the whole scan
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			locs = append(locs, source.SourceLocation{
				Source:       model.SourceClaudeCode,
				VendorDBPath: filepath.Join(dirPath, e.Name()),
				Mtime:        float64(info.ModTime().Unix()),
			})
		}
	}
	return locs, nil
}

// session is one fully-read transcript file.
type session struct {
	vendorID   string
	isSubAgent bool
	lines      []rawLine
}

// Extract reads one transcript file line by line, keeping only
// user/assistant lines. A malformed line is skipped, not fatal.
func (a *Adapter) Extract(ctx context.Context, loc source.SourceLocation, progress source.ProgressFunc) ([]source.RawConversation, error) {
	f, err := os.Open(loc.VendorDBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open claude code transcript: %v", dexerr.ErrStoreIO, err)
	}
	defer f.Close()

	base := filepath.Base(loc.VendorDBPath)
	sess := session{
		vendorID:   strings.TrimSuffix(base, ".jsonl"),
		isSubAgent: strings.HasPrefix(base, "agent-"),
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lineNo int
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		rl, err := decodeLine(line)
		if err != nil {
			continue
		}
		if rl.Type != "user" && rl.Type != "assistant" {
			continue
		}
		if rl.Message == nil {
			continue
		}
		sess.lines = append(sess.lines, rl)
		if progress != nil {
			progress(lineNo, 0)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan claude code transcript: %v", dexerr.ErrStoreIO, err)
	}
	if len(sess.lines) == 0 {
		return nil, nil
	}

	return []source.RawConversation{{Location: loc, VendorID: sess.vendorID, Raw: sess}}, nil
}

// Normalize walks one session's lines in order, linking each tool_use
// block to the tool_result that answers it in a later user-role line.
func (a *Adapter) Normalize(raw source.RawConversation) (model.NormalizedConversation, error) {
	sess, ok := raw.Raw.(session)
	if !ok {
		return model.NormalizedConversation{}, fmt.Errorf("%w: claude code normalize: unexpected raw type", dexerr.ErrCorruptRecord)
	}

	convID := model.ConversationID(model.SourceClaudeCode, sess.vendorID)
	var workspace, gitBranch string

	nc := model.NormalizedConversation{}
	toolIndexByID := make(map[string]int)

	for i, rl := range sess.lines {
		if workspace == "" && rl.CWD != "" {
			workspace = rl.CWD
			gitBranch = rl.GitBranch
		}

		role := model.RoleUser
		if rl.Type == "assistant" {
			role = model.RoleAssistant
		}

		msgID := model.MessageID(convID, i)
		text, blocks := parseContent(rl.Message.Content)

		msg := model.Message{
			ID:             msgID,
			ConversationID: convID,
			Role:           role,
			Content:        text,
			MessageIndex:   i,
			Model:          rl.Message.Model,
		}
		if t, err := time.Parse(time.RFC3339, rl.Timestamp); err == nil {
			msg.Timestamp = t
			msg.HasTimestamp = true
		}
		if rl.Message.Usage != nil {
			msg.InputTokens = rl.Message.Usage.InputTokens
			msg.OutputTokens = rl.Message.Usage.OutputTokens
			msg.CacheReadTokens = rl.Message.Usage.CacheReadInputTokens
			msg.CacheCreationTokens = rl.Message.Usage.CacheCreationInputTokens
		}
		nc.Messages = append(nc.Messages, msg)

		for _, b := range blocks {
			switch b.Type {
			case "tool_use":
				inputStr := ""
				if len(b.Input) > 0 {
					inputStr = string(b.Input)
				}
				tc := model.ToolCall{
					ID:             model.ToolCallID(msgID, b.ID),
					MessageID:      msgID,
					ConversationID: convID,
					ToolType:       b.Name,
					Input:          inputStr,
				}
				nc.ToolCalls = append(nc.ToolCalls, tc)
				if b.ID != "" {
					toolIndexByID[b.ID] = len(nc.ToolCalls) - 1
				}
			case "tool_result":
				if idx, ok := toolIndexByID[b.ToolUseID]; ok {
					nc.ToolCalls[idx].Output = toolResultText(b.Content)
					nc.ToolCalls[idx].IsError = b.IsError
				}
			}
		}
	}

	nc.Conversation = model.Conversation{
		ID:           convID,
		Source:       model.SourceClaudeCode,
		Mode:         model.ModeAgent,
		Workspace:    workspace,
		Project:      platform.ProjectName(workspace),
		GitBranch:    gitBranch,
		MessageCount: len(nc.Messages),
		Ref: model.SourceRef{
			Source:        model.SourceClaudeCode,
			OriginalID:    sess.vendorID,
			WorkspacePath: workspace,
			VendorDBPath:  raw.Location.VendorDBPath,
		},
	}
	for _, m := range nc.Messages {
		nc.Conversation.InputTokens += m.InputTokens
		nc.Conversation.OutputTokens += m.OutputTokens
		nc.Conversation.CacheCreationTokens += m.CacheCreationTokens
		nc.Conversation.CacheReadTokens += m.CacheReadTokens
		if m.Model != "" {
			nc.Conversation.Model = m.Model
		}
	}

	return nc, nil
}

// parseContent extracts the display text and structured blocks out of a
// message.content field, which Claude Code encodes either as a bare string
// or as an array of typed content blocks.
func parseContent(raw json.RawMessage) (string, []contentBlock) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil
	}

	var texts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			texts = append(texts, b.Text)
		case "thinking":
			texts = append(texts, b.Thinking)
		}
	}
	return strings.Join(texts, "\n"), blocks
}

// toolResultText extracts tool_result's content field, which is itself
// either a bare string or a nested content-block array.
func toolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
