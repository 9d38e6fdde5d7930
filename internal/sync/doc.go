// Package sync implements dex's sync orchestrator: the pipeline that
// turns vendor-specific conversation logs on disk into rows in the
// store. One call to Orchestrator.Sync runs detection, discovery,
// extraction, normalization, insertion, sync-state bookkeeping, FTS
// maintenance, embedding-worker coordination, and optional enrichment in
// sequence, reporting progress through a callback as it goes.
package sync
