package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvergho/dex/internal/enrich"
	"github.com/tvergho/dex/internal/secrets"
	syncpkg "github.com/tvergho/dex/internal/sync"
)

var forceSync bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Discover, extract, and index new conversations",
	Long: `sync detects every installed source (Cursor, Claude Code, Codex), extracts
any session not already indexed, and spawns the background embedding
worker for anything new.

Examples:
  # Incremental sync
  dex sync

  # Re-extract and re-normalize everything, even unchanged sessions
  dex sync --force`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&forceSync, "force", false, "re-extract and re-normalize every discovered session")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

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

	var lastPhase syncpkg.Phase
	err = orch.Sync(ctx, syncpkg.Options{Force: forceSync}, func(p syncpkg.Progress) {
		if jsonOutput {
			line, _ := json.Marshal(p)
			fmt.Fprintln(os.Stdout, string(line))
			return
		}
		if p.Phase == lastPhase {
			return
		}
		lastPhase = p.Phase
		fmt.Fprintln(os.Stdout, phaseStyle.Render(string(p.Phase))+" "+describeProgress(p))
	})
	if err != nil {
		return err
	}
	return nil
}

// buildEnricher returns a nil Enricher interface, not a nil *enrich.Driver
// boxed in a non-nil interface, when no provider is configured —
// Orchestrator's nil check only works against a genuinely nil interface.
func buildEnricher(a *app) syncpkg.Enricher {
	driver := enrich.New(a.cfg.Enrichment, a.repos, a.logger)
	if driver == nil {
		return nil
	}
	return driver
}

// buildRedactor constructs the secret scrubber from configuration. Unlike
// buildEnricher there is no typed-nil risk here: secrets.New always
// returns a live Scrubber, disabled or not, and the orchestrator checks
// IsEnabled() itself before scrubbing anything.
func buildRedactor(a *app) (secrets.Scrubber, error) {
	cfg := secrets.DefaultConfig()
	cfg.Enabled = a.cfg.Secrets.Enabled
	if a.cfg.Secrets.RedactionString != "" {
		cfg.RedactionString = a.cfg.Secrets.RedactionString
	}
	cfg.AllowList = a.cfg.Secrets.AllowList
	return secrets.New(cfg)
}

func describeProgress(p syncpkg.Progress) string {
	switch p.Phase {
	case syncpkg.PhaseDiscovering:
		return fmt.Sprintf("found %d conversation(s) across %d project(s)", p.ConversationsFound, p.ProjectsFound)
	case syncpkg.PhaseIndexing:
		return fmt.Sprintf("indexed %d conversation(s), %d message(s)", p.ConversationsIndexed, p.MessagesIndexed)
	case syncpkg.PhaseDone:
		return fmt.Sprintf("%d conversation(s), %d message(s) indexed", p.ConversationsIndexed, p.MessagesIndexed)
	case syncpkg.PhaseError:
		return errorStyle.Render(p.Error)
	default:
		if p.CurrentSource != "" {
			return p.CurrentSource
		}
		return ""
	}
}
