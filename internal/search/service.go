package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tvergho/dex/internal/embeddings"
	"github.com/tvergho/dex/internal/logging"
	"github.com/tvergho/dex/internal/model"
	"github.com/tvergho/dex/internal/reranker"
	"github.com/tvergho/dex/internal/repository"
	"github.com/tvergho/dex/internal/store"
)

const (
	// rrfK is the Reciprocal Rank Fusion smoothing constant: a lower value
	// weighs rank-1 hits more heavily relative to the rest of the list.
	rrfK = 60.0

	// fileBoostWeight scales how much a matching file: filter raises a
	// conversation's hybrid score when combined with free text.
	fileBoostWeight = 0.5

	candidateFanout = 2 // each ranked source fetches candidateFanout * limit rows

	// rerankBoostWeight scales how much a message's exact term-overlap
	// score (computed after RRF fusion, over actual content rather than
	// rank position) can adjust its fused score. Small on purpose: the
	// rerank pass is a precision tiebreaker over an already-relevant
	// candidate set, not a replacement ranking signal.
	rerankBoostWeight = 0.3
)

// Service answers dex search queries against the indexed store, combining
// full-text and vector ranking per the query language in query.go.
type Service struct {
	repos    *repository.Repositories
	embedder *embeddings.Client
	rerank   reranker.Reranker
	logger   *logging.Logger
}

// New builds a Service. embedder may be nil, which behaves exactly like an
// unreachable embedding endpoint: every search degrades to FTS-only.
func New(repos *repository.Repositories, embedder *embeddings.Client, logger *logging.Logger) *Service {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.NewDefaultConfig())
	}
	return &Service{repos: repos, embedder: embedder, rerank: reranker.NewSimpleReranker(), logger: logger}
}

// Search parses raw per the query language and dispatches to the matching
// branch of § 4.6: free text, file path, both combined, or filters only.
func (s *Service) Search(ctx context.Context, raw string, limit int) (Result, error) {
	if limit <= 0 {
		limit = 10
	}
	q := ParseQuery(raw)

	switch {
	case q.FilterOnly():
		return s.listByFilters(ctx, q, limit)
	case q.HasFreeText() && q.HasFile():
		return s.hybridWithFileBoost(ctx, q, limit)
	case q.HasFreeText():
		return s.hybridSearch(ctx, q, limit)
	default:
		return s.fileOnlySearch(ctx, q, limit)
	}
}

// hybridSearch implements § 4.8 for a free-text query with no file filter.
func (s *Service) hybridSearch(ctx context.Context, q Query, limit int) (Result, error) {
	fused, degraded, err := s.rankMessages(ctx, q.FreeText, limit)
	if err != nil {
		return Result{}, err
	}
	result, err := s.groupByConversation(ctx, truncateFused(fused, limit), q, nil)
	result.DegradedToFTS = degraded
	return result, err
}

// fileOnlySearch implements § 4.6's file-path-index branch: no free text,
// group matches by conversation, rank by summed file-role score.
func (s *Service) fileOnlySearch(ctx context.Context, q Query, limit int) (Result, error) {
	fetchLimit := limit * candidateFanout * 4
	fileMatches, err := s.repos.Files.Search(ctx, q.File, fetchLimit)
	if err != nil {
		return Result{}, err
	}

	scoreByConv := make(map[string]float64)
	for _, fm := range fileMatches {
		scoreByConv[fm.ConversationID] += fm.Score
	}
	return s.groupFileOnly(ctx, scoreByConv, q, limit)
}

// hybridWithFileBoost implements § 4.6's combined branch: run the hybrid
// message search, keep only conversations that also match the file
// filter, and boost their score by the file match.
func (s *Service) hybridWithFileBoost(ctx context.Context, q Query, limit int) (Result, error) {
	fused, degraded, err := s.rankMessages(ctx, q.FreeText, limit*candidateFanout)
	if err != nil {
		return Result{}, err
	}

	fileMatches, err := s.repos.Files.Search(ctx, q.File, limit*candidateFanout*4)
	if err != nil {
		return Result{}, err
	}
	fileScoreByConv := make(map[string]float64)
	for _, fm := range fileMatches {
		fileScoreByConv[fm.ConversationID] += fm.Score
	}

	result, err := s.groupByConversation(ctx, truncateFused(fused, limit), q, fileScoreByConv)
	result.DegradedToFTS = degraded
	return result, err
}

// truncateFused keeps the top limit message hits out of an already
// descending-by-score fused list. Candidates must be capped before
// they're grouped by conversation, not after, or a conversation with
// many low-ranked hits could out-rank one with a single strong hit.
func truncateFused(fused []fusedHit, limit int) []fusedHit {
	if limit > 0 && len(fused) > limit {
		return fused[:limit]
	}
	return fused
}

// listByFilters implements § 4.6's filter-only branch: a plain repository
// list, not a ranked search.
func (s *Service) listByFilters(ctx context.Context, q Query, limit int) (Result, error) {
	convs, err := s.repos.Conversations.List(ctx, model.Source(q.Source), "", limit, 0)
	if err != nil {
		return Result{}, err
	}
	matches := make([]ConversationMatch, 0, len(convs))
	for _, c := range convs {
		if q.Model != "" && !strings.Contains(strings.ToLower(c.Model), strings.ToLower(q.Model)) {
			continue
		}
		matches = append(matches, ConversationMatch{Conversation: c})
	}
	return Result{Conversations: matches, TotalConversations: len(matches)}, nil
}

// fusedHit is one message id's combined RRF score before grouping.
type fusedHit struct {
	messageID string
	score     float64
}

// rankMessages runs FTS and (if reachable) vector search for freeText in
// parallel and fuses the two rankings with Reciprocal Rank Fusion. It
// returns hits sorted by descending fused score, and whether the pass
// degraded to FTS-only because the embedding endpoint was unreachable.
func (s *Service) rankMessages(ctx context.Context, freeText string, limit int) ([]fusedHit, bool, error) {
	if freeText == "" {
		return nil, false, nil
	}
	fetchLimit := limit * candidateFanout

	var (
		ftsHits    []repository.FTSHit
		ftsErr     error
		vectorHits []string
		degraded   bool
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ftsHits, ftsErr = s.repos.Messages.SearchFTS(ctx, sanitizeFTSQuery(freeText), fetchLimit)
	}()

	if s.embedder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := s.vectorSearch(ctx, freeText, fetchLimit)
			if err != nil {
				s.logger.Warn(ctx, "search: vector search unavailable, falling back to fts-only", zap.Error(err))
				degraded = true
				return
			}
			vectorHits = hits
		}()
	} else {
		degraded = true
	}
	wg.Wait()

	if ftsErr != nil {
		return nil, degraded, ftsErr
	}

	scores := make(map[string]float64, len(ftsHits)+len(vectorHits))
	for _, hit := range ftsHits {
		scores[hit.MessageID] += 1.0 / (rrfK + float64(hit.Rank))
	}
	for i, id := range vectorHits {
		scores[id] += 1.0 / (rrfK + float64(i+1))
	}

	hits := make([]fusedHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, fusedHit{messageID: id, score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].messageID < hits[j].messageID
	})
	return hits, degraded, nil
}

// vectorSearch embeds freeText and brute-force ranks every embedded
// message by cosine similarity, returning message ids best match first.
func (s *Service) vectorSearch(ctx context.Context, freeText string, limit int) ([]string, error) {
	queryVec, err := s.embedder.EmbedQuery(ctx, freeText)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repos.Messages.EmbeddedAll(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}
	out := make([]scored, 0, len(candidates))
	for _, m := range candidates {
		out = append(out, scored{id: m.ID, score: store.CosineSimilarity(queryVec, m.Vector)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > limit {
		out = out[:limit]
	}

	ids := make([]string, len(out))
	for i, sc := range out {
		ids[i] = sc.id
	}
	return ids, nil
}

// groupByConversation resolves fused message hits to content, builds
// snippets, drops whitespace-only rows, applies an optional file-score
// boost, and groups the survivors by conversation, applying source/model
// post-filters along the way.
func (s *Service) groupByConversation(ctx context.Context, fused []fusedHit, q Query, fileScoreByConv map[string]float64) (Result, error) {
	if len(fused) == 0 {
		return Result{Conversations: []ConversationMatch{}}, nil
	}

	ids := make([]string, len(fused))
	scoreByID := make(map[string]float64, len(fused))
	for i, h := range fused {
		ids[i] = h.messageID
		scoreByID[h.messageID] = h.score
	}

	messages, err := s.repos.Messages.FindByIDs(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	messageByID := make(map[string]model.Message, len(messages))
	for _, m := range messages {
		messageByID[m.ID] = m
	}

	terms := strings.Fields(q.FreeText)

	byConv := make(map[string][]MessageMatch)
	var order []string
	for _, h := range fused {
		m, ok := messageByID[h.messageID]
		if !ok || isWhitespaceOnly(m.Content) {
			continue
		}
		snippet, ranges := buildSnippet(m.Content, terms)
		match := MessageMatch{
			MessageID:       m.ID,
			ConversationID:  m.ConversationID,
			Role:            m.Role,
			Score:           h.score,
			Snippet:         snippet,
			HighlightRanges: ranges,
		}
		if _, exists := byConv[m.ConversationID]; !exists {
			order = append(order, m.ConversationID)
		}
		byConv[m.ConversationID] = append(byConv[m.ConversationID], match)
	}

	convIDs := make([]string, 0, len(byConv))
	for _, id := range order {
		if fileScoreByConv != nil {
			if _, ok := fileScoreByConv[id]; !ok {
				continue // intersect with file: filter
			}
		}
		convIDs = append(convIDs, id)
	}
	if len(convIDs) == 0 {
		return Result{Conversations: []ConversationMatch{}}, nil
	}

	conversations, err := s.repos.Conversations.FindByIDs(ctx, convIDs)
	if err != nil {
		return Result{}, err
	}

	out := make([]ConversationMatch, 0, len(conversations))
	for _, c := range conversations {
		if q.Source != "" && !strings.EqualFold(string(c.Source), q.Source) {
			continue
		}
		if q.Model != "" && !strings.Contains(strings.ToLower(c.Model), strings.ToLower(q.Model)) {
			continue
		}
		matches := byConv[c.ID]
		s.rerankMatches(ctx, q.FreeText, matches, messageByID)
		sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
		best := matches[0].Score
		if fileScoreByConv != nil {
			best += fileBoostWeight * fileScoreByConv[c.ID]
		}
		out = append(out, ConversationMatch{Conversation: c, BestScore: best, Matches: matches})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BestScore > out[j].BestScore })

	return Result{Conversations: out, TotalConversations: len(out)}, nil
}

// rerankMatches nudges a conversation's already-fused message scores using
// exact term overlap against full message content, a signal RRF fusion
// never sees (it only knows rank position, not the text itself). Mutates
// matches in place; a rerank failure just keeps the fused order.
func (s *Service) rerankMatches(ctx context.Context, freeText string, matches []MessageMatch, messageByID map[string]model.Message) {
	if s.rerank == nil || freeText == "" || len(matches) < 2 {
		return
	}
	candidates := make([]reranker.Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = reranker.Candidate{MessageID: m.MessageID, Content: messageByID[m.MessageID].Content, FusedScore: float32(m.Score)}
	}
	ranked, err := s.rerank.Rerank(ctx, freeText, candidates, len(candidates))
	if err != nil {
		s.logger.Warn(ctx, "search: rerank pass failed, keeping fused order", zap.Error(err))
		return
	}
	boostByID := make(map[string]float32, len(ranked))
	for _, r := range ranked {
		boostByID[r.MessageID] = r.RerankScore
	}
	for i := range matches {
		matches[i].Score += float64(boostByID[matches[i].MessageID]) * rerankBoostWeight
	}
}

// groupFileOnly resolves a conversation-id-to-summed-score map (file-path
// search with no message match) to a ranked Result.
func (s *Service) groupFileOnly(ctx context.Context, scoreByConv map[string]float64, q Query, limit int) (Result, error) {
	if len(scoreByConv) == 0 {
		return Result{Conversations: []ConversationMatch{}}, nil
	}
	ids := make([]string, 0, len(scoreByConv))
	for id := range scoreByConv {
		ids = append(ids, id)
	}
	conversations, err := s.repos.Conversations.FindByIDs(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	out := make([]ConversationMatch, 0, len(conversations))
	for _, c := range conversations {
		if q.Source != "" && !strings.EqualFold(string(c.Source), q.Source) {
			continue
		}
		if q.Model != "" && !strings.Contains(strings.ToLower(c.Model), strings.ToLower(q.Model)) {
			continue
		}
		out = append(out, ConversationMatch{Conversation: c, BestScore: scoreByConv[c.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BestScore > out[j].BestScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return Result{Conversations: out, TotalConversations: len(out)}, nil
}

// sanitizeFTSQuery turns free text into an FTS5 MATCH expression: every
// token is quoted as a literal phrase (doubling any embedded quote, FTS5's
// own escape convention) and joined with OR so a query matches any of its
// terms rather than requiring every one to be present.
func sanitizeFTSQuery(freeText string) string {
	terms := strings.Fields(freeText)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		escaped := strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+escaped+`"`)
	}
	return strings.Join(quoted, " OR ")
}
