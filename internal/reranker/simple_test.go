package reranker

import (
	"context"
	"testing"
)

func TestSimpleRerankerRerank(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		candidates []Candidate
		topK       int
		wantCount  int
		wantIDs    []string // expected first N ids
	}{
		{
			name:       "no candidates",
			query:      "test query",
			candidates: []Candidate{},
			topK:       10,
			wantCount:  0,
		},
		{
			name:  "single candidate",
			query: "authentication error",
			candidates: []Candidate{
				{MessageID: "m1", Content: "authentication failed due to invalid token", FusedScore: 0.9},
			},
			topK:      10,
			wantCount: 1,
			wantIDs:   []string{"m1"},
		},
		{
			name:  "multiple candidates with term overlap",
			query: "authentication token retry",
			candidates: []Candidate{
				{MessageID: "m1", Content: "use retry with exponential backoff for authentication", FusedScore: 0.8},
				{MessageID: "m2", Content: "invalid request parameter", FusedScore: 0.9},
				{MessageID: "m3", Content: "token refresh and authentication handling", FusedScore: 0.85},
			},
			topK:      10,
			wantCount: 3,
			// m3 and m1 have high overlap with query, m2 has none
			wantIDs: []string{"m3", "m1", "m2"},
		},
		{
			name:  "topK limits results",
			query: "error handling",
			candidates: []Candidate{
				{MessageID: "m1", Content: "error handling patterns", FusedScore: 0.9},
				{MessageID: "m2", Content: "error recovery strategies", FusedScore: 0.85},
				{MessageID: "m3", Content: "error logging and monitoring", FusedScore: 0.8},
				{MessageID: "m4", Content: "error codes reference", FusedScore: 0.75},
			},
			topK:      2,
			wantCount: 2,
		},
		{
			name:  "zero topK defaults to all candidates",
			query: "test",
			candidates: []Candidate{
				{MessageID: "a", Content: "test data", FusedScore: 0.8},
				{MessageID: "b", Content: "another test", FusedScore: 0.7},
			},
			topK:      0,
			wantCount: 2,
		},
		{
			name:  "empty query falls back to fused order",
			query: "   ",
			candidates: []Candidate{
				{MessageID: "m1", Content: "some content", FusedScore: 0.9},
			},
			topK:      10,
			wantCount: 1,
		},
		{
			name:  "blending favors overlap over a higher fused score",
			query: "database optimization",
			candidates: []Candidate{
				// high fused score, no overlap
				{MessageID: "no_overlap", Content: "irrelevant content about something else", FusedScore: 0.95},
				// lower fused score, high overlap
				{MessageID: "high_overlap", Content: "database and optimization techniques", FusedScore: 0.6},
			},
			topK:      10,
			wantCount: 2,
			// blended: 0.5*0.95 + 0.5*0.0 = 0.475 vs 0.5*0.6 + 0.5*1.0 = 0.8
			wantIDs: []string{"high_overlap", "no_overlap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSimpleReranker()
			defer r.Close()

			ctx := context.Background()
			results, err := r.Rerank(ctx, tt.query, tt.candidates, tt.topK)
			if err != nil {
				t.Fatalf("Rerank() error = %v, want nil", err)
			}

			if len(results) != tt.wantCount {
				t.Errorf("Rerank() got %d results, want %d", len(results), tt.wantCount)
			}

			for i, wantID := range tt.wantIDs {
				if i >= len(results) {
					t.Errorf("Rerank() got %d results, want at least %d", len(results), len(tt.wantIDs))
					break
				}
				if results[i].MessageID != wantID {
					t.Errorf("Rerank() position %d got id %q, want %q", i, results[i].MessageID, wantID)
				}
			}
		})
	}
}

func TestRerankRejectsNilContext(t *testing.T) {
	r := NewSimpleReranker()
	//lint:ignore SA1012 exercising the documented nil-context guard
	if _, err := r.Rerank(nil, "q", []Candidate{{MessageID: "m1", Content: "x"}}, 1); err != ErrNilContext {
		t.Fatalf("Rerank(nil ctx) error = %v, want ErrNilContext", err)
	}
}

func TestTermSet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple text", "error handling retry", []string{"error", "handling", "retry"}},
		{"stopwords filtered", "the error handling and retry", []string{"error", "handling", "retry"}},
		{"punctuation removed", "error, handling; retry!", []string{"error", "handling", "retry"}},
		{"short tokens filtered", "a an to error handling", []string{"error", "handling"}},
		{"case normalization", "ERROR Handling RETRY", []string{"error", "handling", "retry"}},
		{"empty string", "", nil},
		{"only stopwords", "the a an and or but", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := termSet(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("termSet(%q) got %d terms, want %d: %v", tt.input, len(got), len(tt.want), got)
			}
			for _, term := range tt.want {
				if _, ok := got[term]; !ok {
					t.Errorf("termSet(%q) missing term %q", tt.input, term)
				}
			}
		})
	}
}

func TestOverlapRatio(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		doc           string
		wantApprox    float32
		wantTolerance float32
	}{
		{"perfect overlap", "error handling retry", "error handling retry", 1.0, 0.01},
		{"partial overlap", "error handling retry", "error handling", 0.67, 0.01},
		{"no overlap", "error handling", "success recovery", 0.0, 0.01},
		{"empty query", "", "error handling", 0.0, 0.01},
		{"empty document", "error handling", "", 0.0, 0.01},
		{"single term", "error", "error", 1.0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := termSet(tt.query).overlapRatio(termSet(tt.doc))
			diff := got - tt.wantApprox
			if diff < 0 {
				diff = -diff
			}
			if diff > tt.wantTolerance {
				t.Errorf("overlapRatio() got %.3f, want ~%.3f (tolerance %.3f)", got, tt.wantApprox, tt.wantTolerance)
			}
		})
	}
}

func TestSimpleRerankerClose(t *testing.T) {
	r := NewSimpleReranker()
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func BenchmarkSimpleRerankerRerank(b *testing.B) {
	r := NewSimpleReranker()
	defer r.Close()

	query := "authentication token retry error handling database optimization"
	candidates := make([]Candidate, 100)
	for i := range candidates {
		candidates[i] = Candidate{
			MessageID:  "m",
			Content:    "error handling with retry logic and authentication token management",
			FusedScore: 0.8,
		}
	}

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Rerank(ctx, query, candidates, 10)
	}
}
