package sync

import "context"

// Phase is one step of the sync state machine. Every phase can transition
// to PhaseError on a fatal failure; only non-fatal errors (a single
// extraction, enrichment) are absorbed without aborting the run.
type Phase string

const (
	PhaseDetecting   Phase = "detecting"
	PhaseDiscovering Phase = "discovering"
	PhaseExtracting  Phase = "extracting"
	PhaseSyncing     Phase = "syncing"
	PhaseIndexing    Phase = "indexing"
	PhaseEnriching   Phase = "enriching"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// CountProgress is a current/total pair, used for both extraction and
// enrichment sub-progress.
type CountProgress struct {
	Current int
	Total   int
}

// EnrichProgress reports title-generation progress during PhaseEnriching.
type EnrichProgress struct {
	Completed    int
	Total        int
	InFlight     int
	RecentTitles []string
}

// Progress is one snapshot reported to a Sync caller's callback.
type Progress struct {
	Phase Phase

	ProjectsFound     int
	ProjectsProcessed int

	ConversationsFound   int
	ConversationsIndexed int
	MessagesIndexed      int

	ExtractionProgress *CountProgress
	EnrichmentProgress *EnrichProgress

	// CurrentSource names the adapter a detecting/discovering/extracting
	// step is currently working on, for a one-line status display.
	CurrentSource string

	// Error is set only when Phase == PhaseError.
	Error string
}

// ProgressFunc receives a Progress snapshot on every phase transition and
// at meaningful points within extraction. It must return quickly; a slow
// callback stalls the pipeline since it's called from the orchestrator's
// own goroutine, not a copy.
type ProgressFunc func(Progress)

// Options configures one Sync call.
type Options struct {
	// Force re-extracts and re-normalizes every discovered location
	// regardless of recorded sync state, deleting and reinserting any
	// conversation that already exists.
	Force bool
}

// EnrichResult is what an Enricher reports after a pass over untitled
// conversations.
type EnrichResult struct {
	Enriched int
	Failed   int
	Skipped  int
	Provider string
}

// Enricher generates titles for untitled conversations. It is optional:
// a nil Enricher simply skips PhaseEnriching. Implemented by
// internal/enrich.Driver.
type Enricher interface {
	Enrich(ctx context.Context, limit int, progress func(EnrichProgress)) (EnrichResult, error)
}

