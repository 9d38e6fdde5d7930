// dex-embedworker fills in embedding vectors for messages the foreground
// sync indexed with a NULL vector column. It is spawned detached by
// internal/sync.Orchestrator after a sync finds pending work and exits
// once the pending count reaches zero, or non-zero if the embeddings
// endpoint never became reachable.
//
// Usage:
//
//	dex-embedworker --db /path/to/index.db
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/embedworker"
	"github.com/tvergho/dex/internal/embeddings"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/store"
)

func main() {
	dbPath := flag.String("db", "", "path to the dex SQLite database")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "dex-embedworker: --db is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "dex-embedworker: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, opens the store at dbPath, and drives the
// worker to completion or cancellation.
func run(ctx context.Context, dbPath string) error {
	cfg, err := config.LoadWithFile("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	repos := repository.New(s)

	client, err := embeddings.NewClient(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  string(cfg.Embeddings.APIKey),
		Timeout: time.Duration(cfg.Embeddings.TimeoutSeconds) * time.Second,
	}, logger.Underlying())
	if err != nil {
		return fmt.Errorf("build embeddings client: %w", err)
	}

	worker := embedworker.New(repos, client, cfg.Worker, dbPath, logger)

	logger.Info(ctx, "dex-embedworker starting", zap.String("db", dbPath))
	if err := worker.Run(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "dex-embedworker finished")
	return nil
}
