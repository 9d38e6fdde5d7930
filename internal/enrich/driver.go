package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	syncpkg "github.com/tvergho/dex/internal/sync"
)

const (
	defaultConcurrency   = 4
	transcriptCharBudget = 4000 // enough context for a title without a full transcript
)

// Driver finds untitled conversations and asks a Provider to title each
// one, bounded concurrency, never failing the caller's sync.
type Driver struct {
	repos       *repository.Repositories
	provider    Provider
	concurrency int
	logger      *logging.Logger
}

// New builds a Driver for cfg. Provider selection follows
// EnrichmentConfig.Provider: "anthropic" requires AnthropicAPIKey,
// "openai" requires OpenAIAPIKey. Returns nil, nil if no provider is
// configured, letting the caller skip enrichment entirely.
func New(cfg config.EnrichmentConfig, repos *repository.Repositories, logger *logging.Logger) *Driver {
	var provider Provider
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey != "" {
			model := cfg.AnthropicModel
			if model == "" {
				model = "claude-3-5-haiku-20241022"
			}
			provider = newAnthropicProvider(string(cfg.AnthropicAPIKey), model)
		}
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			model := cfg.OpenAIModel
			if model == "" {
				model = "gpt-4o-mini"
			}
			provider = newOpenAIProvider(string(cfg.OpenAIAPIKey), cfg.OpenAIBaseURL, model)
		}
	}
	if provider == nil {
		return nil
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger, _ = logging.NewLogger(logging.NewDefaultConfig())
	}
	return &Driver{repos: repos, provider: provider, concurrency: concurrency, logger: logger}
}

// Enrich implements internal/sync.Enricher: it titles up to limit
// untitled conversations, reporting progress as it goes. Provider
// failures are per-conversation and counted, never fatal to the pass.
func (d *Driver) Enrich(ctx context.Context, limit int, progress func(syncpkg.EnrichProgress)) (syncpkg.EnrichResult, error) {
	if progress == nil {
		progress = func(syncpkg.EnrichProgress) {}
	}
	result := syncpkg.EnrichResult{Provider: d.provider.Name()}

	conversations, err := d.repos.Conversations.FindUntitled(ctx, limit)
	if err != nil {
		return result, err
	}
	total := len(conversations)
	if total == 0 {
		return result, nil
	}

	var (
		mu           sync.Mutex
		completed    int
		inFlight     int32
		recentTitles []string
	)

	report := func() {
		mu.Lock()
		snapshot := syncpkg.EnrichProgress{
			Completed:    completed,
			Total:        total,
			InFlight:     int(inFlight),
			RecentTitles: append([]string(nil), recentTitles...),
		}
		mu.Unlock()
		progress(snapshot)
	}

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for _, conv := range conversations {
		wg.Add(1)
		sem <- struct{}{}
		mu.Lock()
		inFlight++
		mu.Unlock()

		go func(convID string) {
			defer wg.Done()
			defer func() { <-sem }()

			title, err := d.titleFor(ctx, convID)

			mu.Lock()
			inFlight--
			completed++
			if err != nil {
				result.Failed++
				d.logger.Warn(ctx, "enrich: title generation failed", zap.String("conversation_id", convID), zap.Error(err))
			} else if title == "" {
				result.Skipped++
			} else {
				result.Enriched++
				recentTitles = append(recentTitles, title)
				if len(recentTitles) > 10 {
					recentTitles = recentTitles[len(recentTitles)-10:]
				}
			}
			mu.Unlock()
			report()
		}(conv.ID)
	}
	wg.Wait()

	return result, nil
}

// titleFor generates and persists a title for one conversation, returning
// the title on success and dexerr.ErrEnrichmentFailure on any failure.
func (d *Driver) titleFor(ctx context.Context, conversationID string) (string, error) {
	messages, err := d.repos.Messages.FindByConversation(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("%w: load conversation %s: %v", dexerr.ErrEnrichmentFailure, conversationID, err)
	}
	if len(messages) == 0 {
		return "", nil
	}

	reply, err := d.provider.GenerateTitle(ctx, transcriptFor(messages))
	if err != nil {
		return "", fmt.Errorf("%w: %v", dexerr.ErrEnrichmentFailure, err)
	}

	title := extractTitle(reply)
	if title == "" {
		return "", nil
	}
	if err := d.repos.Conversations.SetTitle(ctx, conversationID, title); err != nil {
		return "", fmt.Errorf("%w: save title for %s: %v", dexerr.ErrEnrichmentFailure, conversationID, err)
	}
	return title, nil
}

// transcriptFor joins message content up to a character budget, enough
// context for a title prompt without shipping an entire long session.
func transcriptFor(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		line := string(m.Role) + ": " + m.Content + "\n"
		if b.Len()+len(line) > transcriptCharBudget {
			remaining := transcriptCharBudget - b.Len()
			if remaining > 0 {
				b.WriteString(line[:remaining])
			}
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// extractTitle takes a raw provider reply, keeps only its first line,
// strips surrounding quotes, and truncates to 60 characters.
func extractTitle(reply string) string {
	line := strings.TrimSpace(reply)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.Trim(line, `"'`+" \t")
	if len(line) > 60 {
		line = strings.TrimSpace(line[:60])
	}
	return line
}
