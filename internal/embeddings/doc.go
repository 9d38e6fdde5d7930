// Package embeddings is the thin HTTP client every dex process that
// embeds text uses: the embedding worker for batches of pending messages,
// and the search service for a single query string. Both talk to the
// same OpenAI-compatible POST /v1/embeddings endpoint; this package owns
// the wire format and nothing else — batching, retry, and backoff live in
// their respective callers.
package embeddings
