package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/tvergho/dex/internal/platform"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// LoadWithFile loads configuration starting from Defaults(), layering in a
// YAML file and then environment variables.
//
// Precedence (lowest to highest):
//  1. Defaults()
//  2. YAML file at configPath (or ~/.dex/config.yaml if configPath is empty)
//  3. DEX_-prefixed environment variables, e.g. DEX_STORE_VECTOR_DIM,
//     DEX_EMBEDDINGS_BASE_URL, DEX_WORKER_NICENESS.
//
// The config file, if present, must be owned-read/write-only (0600 or
// 0400) and under 1MB; both are treated as tampering otherwise.
func LoadWithFile(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		dataDir, err := platform.DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		configPath = filepath.Join(dataDir, "config.yaml")
	}

	k := koanf.New(".")

	if info, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	if err := k.Load(env.Provider("DEX_", ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if k.Len() > 0 {
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKeyTransform turns DEX_STORE_VECTOR_DIM into store.vector_dim by
// splitting on the first underscore into section and field name, mirroring
// the koanf.yaml tag layout of Config's top-level sections.
func envKeyTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, "DEX_"))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// validateConfigFileProperties rejects world- or group-readable config
// files and files above the size limit, since the file may carry API keys.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
