// Package main implements the dex CLI: a thin shell over the same
// services the stdio MCP server exposes (internal/search,
// internal/retrieval, internal/sync) plus process management for the
// background embedding worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/embeddings"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/platform"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/retrieval"
	"github.com/tvergho/dex/internal/search"
	"github.com/tvergho/dex/internal/source"
	"github.com/tvergho/dex/internal/source/claudecode"
	"github.com/tvergho/dex/internal/source/codex"
	"github.com/tvergho/dex/internal/source/cursor"
	"github.com/tvergho/dex/internal/store"
)

var (
	version = "dev"

	configPath string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "dex",
	Short:   "Search and browse your AI-assistant coding conversations",
	Long:    `dex indexes Cursor, Claude Code, and Codex conversation history into a local hybrid search engine.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.dex/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON instead of formatted output")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
}

// exitCode maps an error to the CLI's exit code contract: 0 success
// (handled by cobra not returning an error at all), 1 generic error, 2
// invalid arguments.
func exitCode(err error) int {
	if errors.Is(err, dexerr.ErrInvalidInput) {
		return 2
	}
	return 1
}

// app bundles every long-lived dependency a subcommand needs. Built fresh
// per invocation since the CLI is a short-lived process, not a daemon.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     *store.Store
	repos     *repository.Repositories
	adapters  []source.Adapter
	embedder  *embeddings.Client
	search    *search.Service
	formatter *retrieval.Formatter
	dbPath    string
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dexerr.ErrInvalidInput, err)
	}

	logCfg := logging.NewDefaultConfig()
	if lvl := cfg.Logging.Level; lvl != "" {
		if err := logCfg.Level.Set(lvl); err != nil {
			return nil, fmt.Errorf("%w: invalid log level %q", dexerr.ErrInvalidInput, lvl)
		}
	}
	logCfg.Format = cfg.Logging.Format
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dataDir, err := platform.DataDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		dbPath = filepath.Join(dataDir, "index.db")
	}

	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	repos := repository.New(s)

	adapters, err := buildAdapters()
	if err != nil {
		s.Close()
		return nil, err
	}

	var embedder *embeddings.Client
	if cfg.Embeddings.BaseURL != "" {
		embedder, err = embeddings.NewClient(embeddings.Config{
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
			APIKey:  string(cfg.Embeddings.APIKey),
			Timeout: time.Duration(cfg.Embeddings.TimeoutSeconds) * time.Second,
		}, logger.Underlying())
		if err != nil {
			logger.Warn(ctx, "embeddings client unavailable, search will degrade to full-text only", zap.Error(err))
		}
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     s,
		repos:     repos,
		adapters:  adapters,
		embedder:  embedder,
		search:    search.New(repos, embedder, logger),
		formatter: retrieval.New(repos),
		dbPath:    dbPath,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	_ = a.store.Close()
}

// buildAdapters constructs every vendor adapter dex knows about. A
// construction failure here is fatal since it would otherwise silently
// drop a source from every sync.
func buildAdapters() ([]source.Adapter, error) {
	cursorAdapter, err := cursor.New()
	if err != nil {
		return nil, fmt.Errorf("build cursor adapter: %w", err)
	}
	codexAdapter, err := codex.New()
	if err != nil {
		return nil, fmt.Errorf("build codex adapter: %w", err)
	}
	claudeAdapter, err := claudecode.New()
	if err != nil {
		return nil, fmt.Errorf("build claude-code adapter: %w", err)
	}
	return []source.Adapter{cursorAdapter, codexAdapter, claudeAdapter}, nil
}
