package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/telemetry"
	"adaptive-learning-platform/models"
)

// Deterministic rerank weights. Similarity carries the ranking; the
// bonuses nudge chunks that literally mention query terms or whose
// content type matches the intent expressed in the question.
const (
	keywordBonusPerTerm = 0.1
	keywordBonusCap     = 0.3

	typeBonusExercise = 0.2
	typeBonusVideo    = 0.2
	typeBonusText     = 0.1
)

// Intent vocabulary per content type, Portuguese and English. A type
// bonus applies only when the question actually asks for that kind of
// material; a generic question leaves the similarity order untouched.
var intentBonuses = map[string]struct {
	bonus float64
	terms []string
}{
	models.ContentTypeExercise: {typeBonusExercise, []string{
		"exercício", "exercicio", "exercícios", "exercicios",
		"praticar", "prática", "pratica", "questão", "questao",
		"questões", "questoes", "exercise", "practice", "question",
	}},
	models.ContentTypeVideo: {typeBonusVideo, []string{
		"vídeo", "video", "vídeos", "videos", "assistir", "aula",
		"tutorial", "watch",
	}},
	models.ContentTypeText: {typeBonusText, []string{
		"explicar", "explique", "explicação", "explicacao",
		"definição", "definicao", "conceito", "explain",
		"definition", "concept",
	}},
}

// RetrievalCache caches full retrieval results per normalized query.
type RetrievalCache interface {
	Get(ctx context.Context, query string) (*models.RetrievalResult, bool)
	Set(ctx context.Context, query string, result *models.RetrievalResult)
}

// RetrievalService embeds the query, pulls an over-fetched candidate set
// from the vector index and reranks it with a deterministic manual
// scoring pass.
type RetrievalService struct {
	embedder        ai.EmbeddingProvider
	index           VectorIndex
	cache           RetrievalCache
	metrics         *telemetry.Metrics
	maxResults      int
	candidateFactor int
}

func NewRetrievalService(embedder ai.EmbeddingProvider, index VectorIndex, cache RetrievalCache, metrics *telemetry.Metrics, maxResults, candidateFactor int) *RetrievalService {
	if maxResults <= 0 {
		maxResults = 3
	}
	if candidateFactor <= 0 {
		candidateFactor = 3
	}
	return &RetrievalService{
		embedder:        embedder,
		index:           index,
		cache:           cache,
		metrics:         metrics,
		maxResults:      maxResults,
		candidateFactor: candidateFactor,
	}
}

// Retrieve returns the top-k reranked chunks for a question. An empty
// index or a question with no candidates yields an empty result, never
// an error.
func (r *RetrievalService) Retrieve(ctx context.Context, query string) (*models.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.RetrievalResult{Query: query}, nil
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, query); ok {
			logger.Debug("Retrieval cache hit", "query", query)
			return cached, nil
		}
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RecordEmbeddingCall("query")
	}

	candidates, err := r.index.Query(ctx, vector, r.maxResults*r.candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	scored := r.rerank(query, candidates)
	if len(scored) > r.maxResults {
		scored = scored[:r.maxResults]
	}

	result := &models.RetrievalResult{Query: query, Chunks: scored}
	if r.cache != nil {
		r.cache.Set(ctx, query, result)
	}
	return result, nil
}

// rerank applies the manual scoring pass over similarity-ordered
// candidates. The sort is stable and similarity order is the tiebreak,
// so identical inputs always produce identical rankings.
func (r *RetrievalService) rerank(query string, candidates []Candidate) []models.ScoredChunk {
	terms := queryTerms(query)
	lowerQuery := strings.ToLower(query)

	scored := make([]models.ScoredChunk, 0, len(candidates))
	for _, cand := range candidates {
		hits := keywordHits(terms, cand.Chunk.Text)

		keywordBonus := float64(hits) * keywordBonusPerTerm
		if keywordBonus > keywordBonusCap {
			keywordBonus = keywordBonusCap
		}

		scored = append(scored, models.ScoredChunk{
			Chunk:       cand.Chunk,
			Similarity:  cand.Similarity,
			RerankScore: cand.Similarity + keywordBonus + typeBonus(cand.Chunk.Metadata.ContentType, lowerQuery),
			KeywordHits: hits,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})
	return scored
}

// typeBonus grants a content-type bonus only when the lowercased query
// contains an intent term for that type.
func typeBonus(contentType, lowerQuery string) float64 {
	entry, ok := intentBonuses[contentType]
	if !ok {
		return 0
	}
	for _, term := range entry.terms {
		if strings.Contains(lowerQuery, term) {
			return entry.bonus
		}
	}
	return 0
}

// queryTerms lowercases and deduplicates the meaningful query words.
func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"")
		if len(w) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// keywordHits counts distinct query terms present in the chunk text.
func keywordHits(terms []string, text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return hits
}
