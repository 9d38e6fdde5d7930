// Package reranker re-scores hybrid search's already-fused message hits
// using exact term overlap against full message content — a signal
// Reciprocal Rank Fusion never sees, since RRF only knows each hit's
// rank position in the FTS and vector result lists, not the text itself.
package reranker

import "context"

// Candidate is one fused search hit handed to a Reranker: the message
// id, its full content, and the score it already carries out of fusion.
type Candidate struct {
	MessageID  string
	Content    string
	FusedScore float32
}

// Ranked is a Candidate after a reranking pass.
type Ranked struct {
	Candidate
	RerankScore float32 // reranker's own 0.0-1.0 relevance estimate
	FusedRank   int     // position in the slice handed to Rerank, 0-indexed
}

// Reranker re-scores candidates against a free-text query.
type Reranker interface {
	// Rerank returns up to topK Ranked results sorted by RerankScore
	// descending. The caller must pass a non-nil ctx.
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Ranked, error)

	// Close releases any resources held by the reranker.
	Close() error
}
