// Package embedworker implements dex's detached embedding worker: the
// process the sync orchestrator spawns to fill in vectors for messages
// left behind with a NULL vector column. It scans for pending messages in
// batches, calls the embeddings HTTP endpoint, writes vectors back, and
// reports its progress through a sentinel file so the foreground CLI can
// poll it without a socket.
package embedworker
