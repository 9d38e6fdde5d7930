package reranker

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// stopwords are excluded from term-overlap scoring; they inflate overlap
// between unrelated messages without carrying query intent.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {},
	"are": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "can": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "what": {}, "which": {},
	"who": {}, "when": {}, "where": {}, "why": {}, "how": {},
}

// SimpleReranker blends each candidate's fused score with how much of
// the query's vocabulary shows up in its content. It needs no model or
// external service, so it never fails to produce a ranking.
type SimpleReranker struct {
	fusedWeight   float32
	overlapWeight float32
}

// NewSimpleReranker builds a SimpleReranker that weighs fused score and
// term overlap equally.
func NewSimpleReranker() *SimpleReranker {
	return &SimpleReranker{fusedWeight: 0.5, overlapWeight: 0.5}
}

// Rerank blends each candidate's FusedScore with its term-overlap
// against query, and returns the top topK by blended score.
func (r *SimpleReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Ranked, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if topK <= 0 {
		topK = len(candidates)
	}
	if len(candidates) == 0 {
		return []Ranked{}, nil
	}

	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return rankByFusedScore(candidates, topK), nil
	}

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		overlap := queryTerms.overlapRatio(termSet(c.Content))
		ranked[i] = Ranked{
			Candidate:   c,
			RerankScore: overlap,
			FusedRank:   i,
		}
	}

	blended := make([]float32, len(ranked))
	for i, c := range candidates {
		blended[i] = r.fusedWeight*c.FusedScore + r.overlapWeight*ranked[i].RerankScore
	}
	sort.Sort(&byBlendedScore{ranked: ranked, blended: blended})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	return ranked[:topK], nil
}

// Close is a no-op; SimpleReranker holds no resources.
func (r *SimpleReranker) Close() error {
	return nil
}

// byBlendedScore sorts ranked candidates by a parallel slice of blended
// scores, descending, keeping the two slices in lockstep on swap.
type byBlendedScore struct {
	ranked  []Ranked
	blended []float32
}

func (b *byBlendedScore) Len() int      { return len(b.ranked) }
func (b *byBlendedScore) Swap(i, j int) { b.ranked[i], b.ranked[j] = b.ranked[j], b.ranked[i]; b.blended[i], b.blended[j] = b.blended[j], b.blended[i] }
func (b *byBlendedScore) Less(i, j int) bool { return b.blended[i] > b.blended[j] }

// termFrequency maps a lowercased, stopword-filtered term to how many
// times it appeared.
type termFrequency map[string]int

// termSet tokenizes text into a term frequency map, splitting on
// anything that isn't a letter or digit and dropping stopwords and
// single/double-character noise.
func termSet(text string) termFrequency {
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tf := make(termFrequency, len(fields))
	for _, term := range fields {
		if len(term) <= 2 {
			continue
		}
		if _, stop := stopwords[term]; stop {
			continue
		}
		tf[term]++
	}
	return tf
}

// overlapRatio returns the fraction of distinct terms in ts that also
// appear in other, in [0.0, 1.0]. An empty ts overlaps with nothing.
func (ts termFrequency) overlapRatio(other termFrequency) float32 {
	if len(ts) == 0 {
		return 0
	}
	matched := 0
	for term := range ts {
		if _, ok := other[term]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(ts))
}

// rankByFusedScore orders candidates by their incoming FusedScore when
// there's no query vocabulary to rerank against.
func rankByFusedScore(candidates []Candidate, topK int) []Ranked {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FusedScore > sorted[j].FusedScore })

	if topK > len(sorted) {
		topK = len(sorted)
	}
	result := make([]Ranked, topK)
	for i := 0; i < topK; i++ {
		result[i] = Ranked{
			Candidate:   sorted[i],
			RerankScore: sorted[i].FusedScore,
			FusedRank:   i,
		}
	}
	return result
}
