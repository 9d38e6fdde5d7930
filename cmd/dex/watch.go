package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/platform"
	syncpkg "github.com/tvergho/dex/internal/sync"
)

const watchDebounce = 3 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch vendor source directories and sync automatically",
	Long: `watch runs dex sync once up front, then watches every installed vendor
source's storage directory for changes and triggers an incremental sync
a few seconds after activity settles. Runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	redactor, err := buildRedactor(a)
	if err != nil {
		return err
	}

	orch := syncpkg.New(a.store, a.repos, a.dbPath, a.adapters, a.cfg, buildEnricher(a), redactor, a.logger)

	triggerSync := func() {
		fmt.Fprintln(os.Stdout, phaseStyle.Render("syncing")+" change detected")
		if err := orch.Sync(ctx, syncpkg.Options{}, func(p syncpkg.Progress) {
			if p.Phase == syncpkg.PhaseDone {
				fmt.Fprintf(os.Stdout, "%d conversation(s), %d message(s) indexed\n", p.ConversationsIndexed, p.MessagesIndexed)
			}
		}); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
	}

	triggerSync()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs() {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			a.logger.Warn(ctx, "watch: failed to watch directory", zap.String("path", dir), zap.Error(err))
			continue
		}
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, triggerSync)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
	}
}

// watchDirs enumerates the vendor storage directories worth watching,
// ignoring any platform resolution failure for a given source.
func watchDirs() []string {
	var dirs []string
	if p, err := platform.CursorStorePath(); err == nil {
		dirs = append(dirs, filepath.Dir(p))
	}
	if p, err := platform.CodexSessionsDir(); err == nil {
		dirs = append(dirs, p)
	}
	if p, err := platform.ClaudeCodeProjectsDir(); err == nil {
		dirs = append(dirs, p)
	}
	return dirs
}
