// Package platform resolves per-OS filesystem locations for dex's own data
// directory and for the vendor stores it reads from. All expansion of
// "~" and environment variables happens here so adapters and the store
// never touch os.UserHomeDir directly.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns dex's own data directory, creating it if necessary.
// Respects DEX_DATA_DIR for tests and advanced setups; otherwise
// $HOME/.dex on every platform.
func DataDir() (string, error) {
	if v := os.Getenv("DEX_DATA_DIR"); v != "" {
		return ExpandPath(v), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".dex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ExpandPath expands a leading "~" to the user's home directory and
// expands $VAR / ${VAR} references. Paths that don't start with "~" or
// contain no env references are returned unchanged.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if len(p) > 1 && (p[1] == '/' || p[1] == os.PathSeparator) {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return os.ExpandEnv(p)
}

// CursorStorePath returns the path to the Cursor IDE's global KV store
// file (the VS Code-fork IDE's embedded SQLite database), per platform.
func CursorStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "globalStorage", "state.vscdb"), nil
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Cursor", "User", "globalStorage", "state.vscdb"), nil
	default: // linux and other unix
		return filepath.Join(home, ".config", "Cursor", "User", "globalStorage", "state.vscdb"), nil
	}
}

// CursorChatsDir returns the Cursor CLI's per-workspace chat directory
// root, used as a fallback discovery path when the IDE store is absent.
func CursorChatsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cursor", "chats"), nil
}

// CodexSessionsDir returns the root directory Codex CLI stores its
// rollout-*.jsonl session logs under.
func CodexSessionsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codex", "sessions"), nil
}

// ClaudeCodeProjectsDir returns the root directory Claude Code stores its
// per-project *.jsonl session logs under.
func ClaudeCodeProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// ProjectName derives the display project name from a workspace path: its
// basename, falling back to the path itself if basename computation fails
// to produce anything useful (e.g. "/", "").
func ProjectName(workspacePath string) string {
	if workspacePath == "" {
		return ""
	}
	base := filepath.Base(filepath.Clean(workspacePath))
	if base == "." || base == string(filepath.Separator) {
		return workspacePath
	}
	return base
}
