package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration, built from config.LoggingConfig at
// startup.
type Config struct {
	Level     zapcore.Level     `koanf:"level"`
	Format    string            `koanf:"format"` // "console" or "json"
	Fields    map[string]string `koanf:"fields"`
	Redaction RedactionConfig   `koanf:"redaction"`
}

// RedactionConfig controls which field names and value patterns get
// replaced with a redaction marker before reaching the encoder.
type RedactionConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Fields   []string `koanf:"fields"`
	Patterns []string `koanf:"patterns"`
}

// NewDefaultConfig returns a Config with dex's default logging settings:
// info level, console format, and redaction of common secret field names.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "console",
		Fields: map[string]string{
			"service": "dex",
		},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"api_key", "anthropic_api_key", "openai_api_key",
				"authorization", "bearer", "token",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)sk-[a-zA-Z0-9-]{10,}`,
			},
		},
	}
}

// Validate checks the logging config for errors that would otherwise
// surface as a confusing panic deep inside zap's encoder construction.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if c.Redaction.Enabled {
		for _, pattern := range c.Redaction.Patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
			}
		}
	}
	return nil
}
