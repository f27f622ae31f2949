package services

import (
	"context"
	"math"
	"sort"
	"sync"

	"adaptive-learning-platform/models"
)

// Candidate is a raw nearest-neighbor hit before reranking.
type Candidate struct {
	Chunk      models.Chunk
	Similarity float64
}

// VectorIndex is the engine boundary for chunk storage and similarity
// search. Upsert replaces by (source_id, chunk_id); DeleteSource drops all
// chunks for one source so the no-orphan invariant holds after a source
// disappears.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	DeleteSource(ctx context.Context, sourceID string) error
	Query(ctx context.Context, vector []float32, topN int) ([]Candidate, error)
	SourceIDs(ctx context.Context) ([]string, error)
	SampleMetadata(ctx context.Context, limit int) ([]models.ChunkMetadata, error)
	Count(ctx context.Context) (int64, error)
}

// MemoryVectorIndex keeps everything in process. It backs tests and the
// zero-dependency local mode; the Mongo implementation is the production
// engine.
type MemoryVectorIndex struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk // keyed by chunk_id
}

func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{chunks: make(map[string]models.Chunk)}
}

func (m *MemoryVectorIndex) Upsert(_ context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ChunkID] = c
	}
	return nil
}

func (m *MemoryVectorIndex) DeleteSource(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.SourceID == sourceID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *MemoryVectorIndex) Query(_ context.Context, vector []float32, topN int) ([]Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]Candidate, 0, len(m.chunks))
	for _, c := range m.chunks {
		candidates = append(candidates, Candidate{
			Chunk:      c,
			Similarity: CosineSimilarity(vector, c.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		// Deterministic order for equal scores
		return candidates[i].Chunk.ChunkID < candidates[j].Chunk.ChunkID
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

func (m *MemoryVectorIndex) SourceIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, c := range m.chunks {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			ids = append(ids, c.SourceID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryVectorIndex) SampleMetadata(_ context.Context, limit int) ([]models.ChunkMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.chunks))
	for id := range m.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.ChunkMetadata, 0, limit)
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		out = append(out, m.chunks[id].Metadata)
	}
	return out, nil
}

func (m *MemoryVectorIndex) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either is empty or mismatched.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
