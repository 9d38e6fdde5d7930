// Package dexerr defines the sentinel error kinds shared across dex's
// subsystems. Each kind is a plain error value; call sites wrap it with
// fmt.Errorf("...: %w", dexerr.ErrXxx) to add context while keeping
// errors.Is comparisons working.
package dexerr

import "errors"

var (
	// ErrInvalidInput marks a caller-facing rejection: bad date, unknown
	// source name, malformed query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingSource marks a vendor store that is not present on disk.
	// Adapters report this as "unavailable"; the orchestrator absorbs it.
	ErrMissingSource = errors.New("source not present")

	// ErrCorruptRecord marks an unparseable bubble, line, or event. Always
	// absorbed at the adapter boundary; never propagates past Extract.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrStoreBusy marks a failed attempt to acquire the process-wide sync
	// lock. No data is mutated when this is returned.
	ErrStoreBusy = errors.New("store busy: another sync is already running")

	// ErrStoreIO marks a failure in the underlying store (query, write,
	// FTS rebuild, nearest-neighbor search).
	ErrStoreIO = errors.New("store I/O error")

	// ErrEmbeddingUnavailable marks the embeddings HTTP endpoint being
	// unreachable. Search degrades to FTS-only; the worker exits non-zero.
	ErrEmbeddingUnavailable = errors.New("embedding endpoint unavailable")

	// ErrEnrichmentFailure marks a per-conversation title-generation
	// failure. Logged and counted; never aborts a sync.
	ErrEnrichmentFailure = errors.New("enrichment failed")

	// ErrNotFound marks a lookup that found nothing (e.g. get by id).
	ErrNotFound = errors.New("not found")
)
