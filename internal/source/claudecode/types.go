package claudecode

import "encoding/json"

// rawLine is one line of a Claude Code session transcript. Only "user" and
// "assistant" lines carry a message; other types (tool results wrapped at
// the top level, meta lines) are skipped by the caller.
type rawLine struct {
	Type      string          `json:"type"`
	UUID      string          `json:"uuid"`
	Timestamp string          `json:"timestamp"`
	CWD       string          `json:"cwd"`
	GitBranch string          `json:"gitBranch"`
	Version   string          `json:"version"`
	Message   *innerMessage   `json:"message"`
}

type innerMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *usage          `json:"usage"`
}

type usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// contentBlock is one element of message.content when it is an array
// rather than a bare string.
type contentBlock struct {
	Type      string          `json:"type"` // text, thinking, tool_use, tool_result
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`   // tool_use id
	Name      string          `json:"name"` // tool_use name
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"` // tool_result linkage
	Content   json.RawMessage `json:"content"`      // tool_result payload, string or array
	IsError   bool            `json:"is_error"`
}

func decodeLine(b []byte) (rawLine, error) {
	var rl rawLine
	err := json.Unmarshal(b, &rl)
	return rl, err
}
