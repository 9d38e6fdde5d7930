package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/config"
	"github.com/tvergho/dex/internal/dexerr"
	"github.com/tvergho/dex/internal/ignore"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/secrets"
	"github.com/tvergho/dex/internal/source"
	"github.com/tvergho/dex/internal/spawn"
	"github.com/tvergho/dex/internal/store"
)

// Orchestrator runs dex's sync pipeline over a fixed set of source
// adapters, one database, and one configuration.
type Orchestrator struct {
	store    *store.Store
	repos    *repository.Repositories
	dbPath   string
	adapters []source.Adapter

	syncCfg   config.SyncConfig
	workerCfg config.WorkerConfig

	enricher         Enricher
	enrichmentCfg    config.EnrichmentConfig
	redactor         secrets.Scrubber
	ignoreParser     *ignore.Parser
	workerBinaryPath func() (string, error)

	logger *logging.Logger
}

// New builds an Orchestrator over s, repos, and adapters. dbPath is the
// store's own file path, used to derive the sync lock, worker pid file,
// and worker progress sentinel paths. enricher may be nil to disable
// PhaseEnriching entirely. redactor may be nil to skip secret scrubbing;
// callers must pass a genuinely nil interface, not a nil concrete
// scrubber, to avoid the typed-nil-in-interface trap.
func New(s *store.Store, repos *repository.Repositories, dbPath string, adapters []source.Adapter, cfg *config.Config, enricher Enricher, redactor secrets.Scrubber, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.NewDefaultConfig())
	}
	return &Orchestrator{
		store:            s,
		repos:            repos,
		dbPath:           dbPath,
		adapters:         adapters,
		syncCfg:          cfg.Sync,
		workerCfg:        cfg.Worker,
		enricher:         enricher,
		enrichmentCfg:    cfg.Enrichment,
		redactor:         redactor,
		ignoreParser:     ignore.NewParser(cfg.Sync.IgnoreFiles, cfg.Sync.FallbackExcludes),
		workerBinaryPath: ResolveWorkerBinary(cfg.Worker.BinaryPath),
		logger:           logger,
	}
}

// detectedSource pairs an adapter with whether Detect reported it present.
type detectedSource struct {
	adapter source.Adapter
	present bool
	err     error
}

// locatedSource pairs a discoverable adapter with the locations it found.
type locatedSource struct {
	adapter   source.Adapter
	locations []source.SourceLocation
	err       error
}

// Sync runs the full pipeline once: acquire the sync lock, detect and
// discover available vendor sources, extract and normalize their sessions,
// insert whatever is new (or everything, under Force), update sync state,
// rebuild the FTS index if anything changed, coordinate the embedding
// worker, and optionally enrich untitled conversations. Every exit path
// releases the lock and reports a terminal Progress (PhaseDone or
// PhaseError).
func (o *Orchestrator) Sync(ctx context.Context, opts Options, report ProgressFunc) error {
	if report == nil {
		report = func(Progress) {}
	}

	lock, err := store.AcquireSyncLock(o.dbPath)
	if err != nil {
		report(Progress{Phase: PhaseError, Error: "Another sync is already running"})
		return err
	}
	defer lock.Release()

	progress := Progress{}
	err = o.run(ctx, opts, &progress, report)
	if err != nil {
		progress.Phase = PhaseError
		progress.Error = err.Error()
		o.logger.Error(ctx, "sync failed", zap.Error(err))
		report(progress)
		return err
	}

	progress.Phase = PhaseDone
	o.logger.Info(ctx, "sync complete",
		zap.Int("conversations_indexed", progress.ConversationsIndexed),
		zap.Int("messages_indexed", progress.MessagesIndexed))
	report(progress)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, opts Options, progress *Progress, report ProgressFunc) error {
	// Phase 1: detect, then discover, in parallel across every adapter.
	progress.Phase = PhaseDetecting
	o.logger.Info(ctx, "sync: detecting sources")
	report(*progress)

	detections := make([]detectedSource, len(o.adapters))
	forEachBounded(indices(len(o.adapters)), len(o.adapters), func(i int) {
		present, err := o.adapters[i].Detect(ctx)
		detections[i] = detectedSource{adapter: o.adapters[i], present: present, err: err}
	})

	var available []source.Adapter
	for _, d := range detections {
		if d.err != nil {
			o.logger.Warn(ctx, "sync: detect failed", zap.String("source", string(d.adapter.Source())), zap.Error(d.err))
			continue
		}
		if d.present {
			available = append(available, d.adapter)
		}
	}
	progress.ProjectsFound = len(available)

	progress.Phase = PhaseDiscovering
	report(*progress)

	located := make([]locatedSource, len(available))
	forEachBounded(indices(len(available)), len(available), func(i int) {
		progress.CurrentSource = string(available[i].Source())
		locs, err := available[i].Discover(ctx)
		located[i] = locatedSource{adapter: available[i], locations: locs, err: err}
	})

	adapterBySource := make(map[model.Source]source.Adapter, len(available))
	var allLocations []source.SourceLocation
	for _, l := range located {
		adapterBySource[l.adapter.Source()] = l.adapter
		if l.err != nil {
			o.logger.Warn(ctx, "sync: discover failed", zap.String("source", string(l.adapter.Source())), zap.Error(l.err))
			continue
		}
		allLocations = append(allLocations, l.locations...)
	}

	// Phase 2: gate by mtime against recorded sync state.
	workList, err := o.gateByMtime(ctx, allLocations, opts.Force)
	if err != nil {
		return err
	}
	progress.ProjectsProcessed = len(workList)

	// Phase 3: extract, bounded concurrency.
	progress.Phase = PhaseExtracting
	report(*progress)

	raws := o.extractAll(ctx, workList, adapterBySource, progress, report)

	// Phase 4: normalize, partition into new-vs-existing, and under Force
	// delete anything that will be reinserted.
	normalized, err := o.normalizeAll(ctx, raws, adapterBySource)
	if err != nil {
		return err
	}
	progress.ConversationsFound = len(normalized)

	toInsert, deleted, err := o.partition(ctx, normalized, opts.Force)
	if err != nil {
		return err
	}
	if deleted {
		if err := spawn.Stop(spawn.PidFile(o.dbPath)); err != nil {
			o.logger.Warn(ctx, "sync: failed to stop embedding worker before delete", zap.Error(err))
		}
	}

	// Phase 5: bulk insert.
	progress.Phase = PhaseSyncing
	report(*progress)

	messagesIndexed, err := o.insertAll(ctx, toInsert)
	if err != nil {
		return err
	}
	progress.ConversationsIndexed = len(toInsert)
	progress.MessagesIndexed = messagesIndexed
	report(*progress)

	// Phase 6: record sync state for every location processed, whether or
	// not it yielded any new conversations.
	if err := o.recordSyncState(ctx, workList); err != nil {
		return err
	}

	// Phase 7: rebuild FTS iff anything was indexed.
	progress.Phase = PhaseIndexing
	report(*progress)
	if messagesIndexed > 0 {
		if err := o.store.RebuildFTS(ctx); err != nil {
			return err
		}
	}

	// Phase 8: coordinate with the embedding worker.
	if err := o.coordinateWorker(ctx); err != nil {
		o.logger.Warn(ctx, "sync: failed to coordinate embedding worker", zap.Error(err))
	}

	// Phase 9: enrichment is optional and never fatal.
	if o.enricher != nil && o.enrichmentCfg.Enabled {
		progress.Phase = PhaseEnriching
		report(*progress)
		o.enrich(ctx, progress, report)
	}

	return nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (o *Orchestrator) gateByMtime(ctx context.Context, locations []source.SourceLocation, force bool) ([]source.SourceLocation, error) {
	if force {
		return locations, nil
	}
	var work []source.SourceLocation
	for _, loc := range locations {
		state, ok, err := o.repos.Syncs.Get(ctx, loc.Source, loc.VendorDBPath)
		if err != nil {
			return nil, err
		}
		if ok && state.LastMtime >= loc.Mtime {
			continue
		}
		work = append(work, loc)
	}
	return work, nil
}

func (o *Orchestrator) extractAll(ctx context.Context, locations []source.SourceLocation, adapterBySource map[model.Source]source.Adapter, progress *Progress, report ProgressFunc) []source.RawConversation {
	var mu sync.Mutex
	var raws []source.RawConversation

	forEachBounded(locations, o.syncCfg.ExtractionConcurrency, func(loc source.SourceLocation) {
		adapter, ok := adapterBySource[loc.Source]
		if !ok {
			return
		}
		// loc is the loop variable's per-iteration copy, captured by this
		// closure alone; concurrent extractions never share or race on it.
		locSource := string(loc.Source)
		cb := func(current, total int) {
			mu.Lock()
			progress.CurrentSource = locSource
			progress.ExtractionProgress = &CountProgress{Current: current, Total: total}
			snapshot := *progress
			mu.Unlock()
			report(snapshot)
		}

		extracted, err := adapter.Extract(ctx, loc, cb)
		if err != nil {
			o.logger.Warn(ctx, "sync: extraction failed", zap.String("source", locSource), zap.String("location", loc.VendorDBPath), zap.Error(err))
			return
		}
		mu.Lock()
		raws = append(raws, extracted...)
		mu.Unlock()
	})

	return raws
}

func (o *Orchestrator) normalizeAll(ctx context.Context, raws []source.RawConversation, adapterBySource map[model.Source]source.Adapter) ([]model.NormalizedConversation, error) {
	out := make([]model.NormalizedConversation, 0, len(raws))
	for _, raw := range raws {
		adapter, ok := adapterBySource[raw.Location.Source]
		if !ok {
			continue
		}
		nc, err := adapter.Normalize(raw)
		if err != nil {
			o.logger.Warn(ctx, "sync: normalize failed", zap.String("source", string(raw.Location.Source)), zap.String("vendor_id", raw.VendorID), zap.Error(err))
			continue
		}
		// An empty session carries no search value and is dropped here,
		// not in the adapter, so every adapter's Normalize can stay
		// oblivious to this cross-cutting rule.
		if len(nc.Messages) == 0 {
			continue
		}
		o.redact(ctx, &nc)
		o.filterIgnoredFiles(ctx, &nc)
		out = append(out, nc)
	}
	return out, nil
}

// filterIgnoredFiles drops file references under vendored or build
// directories (node_modules, .git, dist, and anything a project's own
// .gitignore/.dexignore names) so they never inflate the file index.
// Message and tool call content is left untouched; only which files a
// conversation is recorded as having touched is filtered.
func (o *Orchestrator) filterIgnoredFiles(ctx context.Context, nc *model.NormalizedConversation) {
	if len(nc.ConversationFiles) == 0 && len(nc.MessageFiles) == 0 && len(nc.FileEdits) == 0 {
		return
	}
	patterns, err := o.ignoreParser.ParseProject(nc.Conversation.Workspace)
	if err != nil {
		o.logger.Warn(ctx, "sync: failed to read ignore patterns", zap.String("workspace", nc.Conversation.Workspace), zap.Error(err))
		return
	}
	matcher := ignore.NewMatcher(patterns)

	filteredConvFiles := nc.ConversationFiles[:0]
	for _, f := range nc.ConversationFiles {
		if !matcher.Match(f.FilePath) {
			filteredConvFiles = append(filteredConvFiles, f)
		}
	}
	nc.ConversationFiles = filteredConvFiles

	filteredMsgFiles := nc.MessageFiles[:0]
	for _, f := range nc.MessageFiles {
		if !matcher.Match(f.FilePath) {
			filteredMsgFiles = append(filteredMsgFiles, f)
		}
	}
	nc.MessageFiles = filteredMsgFiles

	filteredEdits := nc.FileEdits[:0]
	for _, e := range nc.FileEdits {
		if !matcher.Match(e.FilePath) {
			filteredEdits = append(filteredEdits, e)
		}
	}
	nc.FileEdits = filteredEdits
}

// redact scrubs secrets out of message and tool call content before a
// conversation is ever partitioned or inserted, the same way an empty
// session is dropped here rather than in the adapter: every adapter's
// Normalize stays oblivious to this cross-cutting rule. A nil redactor
// leaves nc untouched.
func (o *Orchestrator) redact(ctx context.Context, nc *model.NormalizedConversation) {
	if o.redactor == nil || !o.redactor.IsEnabled() {
		return
	}
	findings := 0
	for i := range nc.Messages {
		result := o.redactor.Scrub(nc.Messages[i].Content)
		nc.Messages[i].Content = result.Scrubbed
		findings += result.TotalFindings
	}
	for i := range nc.ToolCalls {
		in := o.redactor.Scrub(nc.ToolCalls[i].Input)
		nc.ToolCalls[i].Input = in.Scrubbed
		findings += in.TotalFindings
		out := o.redactor.Scrub(nc.ToolCalls[i].Output)
		nc.ToolCalls[i].Output = out.Scrubbed
		findings += out.TotalFindings
	}
	if findings > 0 {
		o.logger.Info(ctx, "sync: redacted secrets from conversation",
			zap.String("conversation_id", nc.Conversation.ID),
			zap.Int("findings", findings))
	}
}

// partition splits normalized conversations into the set to insert,
// deleting any that already exist when force is set so BulkUpsert below
// reinserts them fresh. It reports whether any delete occurred, which
// gates whether a running embedding worker must be stopped first.
func (o *Orchestrator) partition(ctx context.Context, normalized []model.NormalizedConversation, force bool) ([]model.NormalizedConversation, bool, error) {
	if len(normalized) == 0 {
		return nil, false, nil
	}

	ids := make([]string, len(normalized))
	for i, nc := range normalized {
		ids[i] = nc.Conversation.ID
	}
	existing, err := o.repos.Conversations.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	if !force {
		var work []model.NormalizedConversation
		for _, nc := range normalized {
			if !existing[nc.Conversation.ID] {
				work = append(work, nc)
			}
		}
		return work, false, nil
	}

	var toDelete []string
	for _, nc := range normalized {
		if existing[nc.Conversation.ID] {
			toDelete = append(toDelete, nc.Conversation.ID)
		}
	}
	if len(toDelete) == 0 {
		return normalized, false, nil
	}
	if err := o.repos.Conversations.BulkDeleteByIDs(ctx, toDelete); err != nil {
		return nil, false, fmt.Errorf("%w: delete existing conversations for resync: %v", dexerr.ErrStoreIO, err)
	}
	return normalized, true, nil
}

func (o *Orchestrator) insertAll(ctx context.Context, convs []model.NormalizedConversation) (int, error) {
	if len(convs) == 0 {
		return 0, nil
	}

	parents := make([]model.Conversation, len(convs))
	for i, nc := range convs {
		parents[i] = nc.Conversation
	}
	// Conversations first: messages, tool calls, and file rows reference
	// them by id and must never land without a parent row present.
	if err := o.repos.Conversations.BulkUpsert(ctx, parents); err != nil {
		return 0, err
	}

	var messages []model.Message
	var toolCalls []model.ToolCall
	var conversationFiles []model.ConversationFile
	var messageFiles []model.MessageFile
	var fileEdits []model.FileEdit
	for _, nc := range convs {
		messages = append(messages, nc.Messages...)
		toolCalls = append(toolCalls, nc.ToolCalls...)
		conversationFiles = append(conversationFiles, nc.ConversationFiles...)
		messageFiles = append(messageFiles, nc.MessageFiles...)
		fileEdits = append(fileEdits, nc.FileEdits...)
	}

	var insertErr error
	var mu sync.Mutex
	setErr := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if insertErr == nil {
			insertErr = err
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); setErr(o.repos.Messages.BulkInsert(ctx, messages)) }()
	go func() { defer wg.Done(); setErr(o.repos.ToolCalls.BulkInsert(ctx, toolCalls)) }()
	go func() { defer wg.Done(); setErr(o.repos.Files.BulkInsertConversationFiles(ctx, conversationFiles)) }()
	go func() { defer wg.Done(); setErr(o.repos.Files.BulkInsertMessageFiles(ctx, messageFiles)) }()
	go func() { defer wg.Done(); setErr(o.repos.Files.BulkInsertFileEdits(ctx, fileEdits)) }()
	wg.Wait()

	if insertErr != nil {
		return 0, insertErr
	}
	return len(messages), nil
}

func (o *Orchestrator) recordSyncState(ctx context.Context, locations []source.SourceLocation) error {
	now := time.Now().UTC()
	for _, loc := range locations {
		st := model.SyncState{
			Source:        loc.Source,
			VendorDBPath:  loc.VendorDBPath,
			WorkspacePath: loc.WorkspacePath,
			LastSyncedAt:  now,
			LastMtime:     loc.Mtime,
		}
		if err := o.repos.Syncs.Upsert(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// coordinateWorker spawns the detached embedding worker if any message is
// still pending embedding. Stopping a worker ahead of a delete is handled
// by partition's caller; this only ever starts one.
func (o *Orchestrator) coordinateWorker(ctx context.Context) error {
	pending, err := o.repos.Messages.CountUnembedded(ctx)
	if err != nil {
		return err
	}
	if pending == 0 {
		return nil
	}

	if _, alive := spawn.Running(spawn.PidFile(o.dbPath)); alive {
		o.logger.Info(ctx, "sync: embedding worker already running", zap.Int("pending", pending))
		return nil
	}

	if err := spawn.WriteProgress(spawn.ProgressFile(o.dbPath), spawn.Progress{Status: spawn.StatusIdle, Total: pending}); err != nil {
		return err
	}

	binary, err := o.workerBinaryPath()
	if err != nil {
		return fmt.Errorf("resolve embedding worker binary: %w", err)
	}
	args := []string{"--db", o.dbPath}
	if err := spawn.Worker(binary, args, spawn.PidFile(o.dbPath), o.workerCfg.Niceness); err != nil {
		return err
	}
	o.logger.Info(ctx, "sync: spawned embedding worker", zap.Int("pending", pending), zap.String("binary", binary))
	return nil
}

func (o *Orchestrator) enrich(ctx context.Context, progress *Progress, report ProgressFunc) {
	result, err := o.enricher.Enrich(ctx, o.enrichmentCfg.MaxConversations, func(ep EnrichProgress) {
		progress.EnrichmentProgress = &ep
		report(*progress)
	})
	if err != nil {
		// Enrichment is strictly optional: log and move on rather than
		// failing a sync that otherwise indexed everything correctly.
		o.logger.Warn(ctx, "sync: enrichment pass failed", zap.Error(err))
		return
	}
	o.logger.Info(ctx, "sync: enrichment complete",
		zap.Int("enriched", result.Enriched),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.String("provider", result.Provider))
}
