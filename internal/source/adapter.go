// Package source defines the capability contract every vendor adapter
// implements and the intermediate types the sync orchestrator passes
// between its phases.
package source

import (
	"context"

	"github.com/tvergho/dex/internal/model"
)

// SourceLocation names one vendor storage root an adapter can extract from:
// a single global KV file for the cursor adapter, one JSONL file per
// session for the codex and claude-code adapters.
type SourceLocation struct {
	Source        model.Source
	WorkspacePath string
	VendorDBPath  string
	Mtime         float64 // unix seconds, compared against SyncState.LastMtime
}

// RawConversation is one vendor session after Extract but before
// Normalize. Raw holds an adapter-specific intermediate value; only that
// adapter's own Normalize ever type-asserts it.
type RawConversation struct {
	Location SourceLocation
	VendorID string
	Raw      any
}

// ProgressFunc reports extraction progress within one location. Current
// and Total are both in whatever unit the adapter counts (rows, lines,
// sessions); Total may be 0 if not known in advance.
type ProgressFunc func(current, total int)

// Adapter is the capability set every vendor source implements: detect
// whether it is present, discover its locations, extract raw sessions from
// a location, and normalize one raw session into dex's canonical schema.
type Adapter interface {
	// Source identifies which vendor this adapter reads.
	Source() model.Source

	// Detect reports whether this vendor's storage is present at all on
	// this machine, without reading its contents.
	Detect(ctx context.Context) (bool, error)

	// Discover enumerates the vendor locations to extract from.
	Discover(ctx context.Context) ([]SourceLocation, error)

	// Extract reads one location end to end, reporting progress as it
	// goes. A single corrupt row or file is skipped, not fatal: Extract
	// returns whatever it could parse and never fails the whole location
	// for one bad record.
	Extract(ctx context.Context, loc SourceLocation, progress ProgressFunc) ([]RawConversation, error)

	// Normalize converts one RawConversation into dex's canonical schema.
	// raw.Raw must be the type this adapter's own Extract produced.
	Normalize(raw RawConversation) (model.NormalizedConversation, error)
}
