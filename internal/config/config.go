// Package config loads dex's configuration from layered sources: compiled
// defaults, an optional YAML file, and environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the complete dex configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Sync       SyncConfig       `koanf:"sync"`
	Worker     WorkerConfig     `koanf:"worker"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Logging    LoggingConfig    `koanf:"logging"`
	MCP        MCPConfig        `koanf:"mcp"`
}

// StoreConfig configures the SQLite-backed index.
type StoreConfig struct {
	// Path to the SQLite database file. Empty means
	// "$(DataDir)/index.db" resolved at load time.
	Path string `koanf:"path"`

	// VectorDim is the embedding dimension stored alongside each message.
	// Must match the embedding model's output dimension.
	VectorDim int `koanf:"vector_dim"`
}

// EmbeddingsConfig configures the HTTP embedding endpoint shared by search
// and the background embedding worker.
type EmbeddingsConfig struct {
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	APIKey         Secret `koanf:"api_key"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// SyncConfig controls the foreground sync pipeline.
type SyncConfig struct {
	// ExtractionConcurrency bounds how many vendor sessions are parsed
	// concurrently per source during discovery.
	ExtractionConcurrency int `koanf:"extraction_concurrency"`

	// DeleteBatchSize bounds how many rows are removed per statement when
	// pruning conversations whose vendor session disappeared.
	DeleteBatchSize int `koanf:"delete_batch_size"`

	// IgnoreFiles lists gitignore-style file names read from a
	// conversation's workspace root to exclude touched files (vendored
	// dependencies, build output) from the file index.
	IgnoreFiles []string `koanf:"ignore_files"`

	// FallbackExcludes are used for a workspace with none of IgnoreFiles
	// present.
	FallbackExcludes []string `koanf:"fallback_excludes"`
}

// WorkerConfig controls the detached embedding worker process.
type WorkerConfig struct {
	BatchSize           int `koanf:"batch_size"`
	Concurrency         int `koanf:"concurrency"`
	MaxRetries          int `koanf:"max_retries"`
	BatchTimeoutSeconds int `koanf:"batch_timeout_seconds"`

	// Niceness is the POSIX nice value applied to the worker process so it
	// never competes with foreground work for CPU. Ignored on Windows.
	Niceness int `koanf:"niceness"`

	// BinaryPath is the dex-embedworker executable the orchestrator spawns
	// after a sync. Empty resolves to "dex-embedworker" on $PATH, or the
	// sibling of the currently running executable if PATH lookup fails.
	BinaryPath string `koanf:"binary_path"`
}

// EnrichmentConfig controls LLM-based conversation title generation.
type EnrichmentConfig struct {
	Enabled bool `koanf:"enabled"`

	// Provider selects which backend generates titles: "anthropic" or
	// "openai" (any OpenAI-chat-completions-compatible endpoint).
	Provider string `koanf:"provider"`

	AnthropicModel  string `koanf:"anthropic_model"`
	AnthropicAPIKey Secret `koanf:"anthropic_api_key"`

	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIModel   string `koanf:"openai_model"`
	OpenAIAPIKey  Secret `koanf:"openai_api_key"`

	// Concurrency bounds in-flight title requests.
	Concurrency int `koanf:"concurrency"`

	// MaxConversations caps how many untitled conversations a single sync
	// run will enrich, to keep a sync bounded even after a large backfill.
	MaxConversations int `koanf:"max_conversations"`
}

// SecretsConfig controls redaction of API keys, tokens, and credentials
// pasted into an indexed conversation before it is ever written to disk.
type SecretsConfig struct {
	Enabled bool `koanf:"enabled"`

	// RedactionString replaces each detected secret span.
	RedactionString string `koanf:"redaction_string"`

	// AllowList holds regex patterns that, when matched by a would-be
	// finding, exempt it from redaction (e.g. a team's own placeholder
	// tokens that happen to look like a real key).
	AllowList []string `koanf:"allow_list"`
}

// LoggingConfig configures the zap logger used by every binary.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "console" or "json"
}

// MCPConfig identifies the stdio MCP server to connecting clients.
type MCPConfig struct {
	ServerName    string `koanf:"server_name"`
	ServerVersion string `koanf:"server_version"`
}

// Defaults returns a Config populated with dex's compiled-in defaults.
// LoadWithFile starts from this before layering file and env overrides.
func Defaults() *Config {
	return &Config{
		Store: StoreConfig{
			VectorDim: 384,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:        "http://localhost:8080/v1",
			Model:          "BAAI/bge-small-en-v1.5",
			TimeoutSeconds: 30,
		},
		Sync: SyncConfig{
			ExtractionConcurrency: 4,
			DeleteBatchSize:       500,
			IgnoreFiles:           []string{".gitignore", ".dexignore"},
			FallbackExcludes: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/dist/**",
				"**/build/**",
				"**/vendor/**",
				"**/.venv/**",
			},
		},
		Worker: WorkerConfig{
			BatchSize:           32,
			Concurrency:         2,
			MaxRetries:          3,
			BatchTimeoutSeconds: 60,
			Niceness:            19,
		},
		Enrichment: EnrichmentConfig{
			Enabled:          true,
			Provider:         "anthropic",
			AnthropicModel:   "claude-haiku-4-5",
			OpenAIModel:      "gpt-4o-mini",
			Concurrency:      4,
			MaxConversations: 200,
		},
		Secrets: SecretsConfig{
			Enabled:         true,
			RedactionString: "[REDACTED]",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		MCP: MCPConfig{
			ServerName:    "dex",
			ServerVersion: "0.1.0",
		},
	}
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values that would otherwise surface as confusing runtime
// failures deep inside the store or the worker.
func (c *Config) Validate() error {
	if c.Store.VectorDim <= 0 {
		return fmt.Errorf("store.vector_dim must be positive, got %d", c.Store.VectorDim)
	}
	if c.Embeddings.TimeoutSeconds <= 0 {
		return errors.New("embeddings.timeout_seconds must be positive")
	}
	if err := validateURL(c.Embeddings.BaseURL); err != nil {
		return fmt.Errorf("invalid embeddings.base_url: %w", err)
	}
	if c.Sync.ExtractionConcurrency <= 0 {
		return errors.New("sync.extraction_concurrency must be positive")
	}
	if c.Sync.DeleteBatchSize <= 0 {
		return errors.New("sync.delete_batch_size must be positive")
	}
	if c.Worker.BatchSize <= 0 {
		return errors.New("worker.batch_size must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be positive")
	}
	if c.Worker.MaxRetries < 0 {
		return errors.New("worker.max_retries must be non-negative")
	}
	if c.Worker.Niceness < -20 || c.Worker.Niceness > 19 {
		return fmt.Errorf("worker.niceness must be between -20 and 19, got %d", c.Worker.Niceness)
	}
	if c.Enrichment.Enabled {
		switch c.Enrichment.Provider {
		case "anthropic", "openai":
		default:
			return fmt.Errorf("enrichment.provider must be 'anthropic' or 'openai', got %q", c.Enrichment.Provider)
		}
		if c.Enrichment.Concurrency <= 0 {
			return errors.New("enrichment.concurrency must be positive")
		}
		if c.Enrichment.MaxConversations < 0 {
			return errors.New("enrichment.max_conversations must be non-negative")
		}
	}
	if c.Secrets.Enabled && c.Secrets.RedactionString == "" {
		return errors.New("secrets.redaction_string must not be empty when secrets.enabled is true")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", c.Logging.Format)
	}
	return nil
}

func validateURL(u string) error {
	if u == "" {
		return errors.New("must not be empty")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("must use http:// or https://, got %q", u)
	}
	return nil
}
