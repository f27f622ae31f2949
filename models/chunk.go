package models

// Content types attached to chunks at extraction time. The retriever's
// type bonus and the out-of-scope topic summary both key on these.
const (
	ContentTypeText       = "text"
	ContentTypePDF        = "pdf"
	ContentTypeImage      = "image"
	ContentTypeVideo      = "video"
	ContentTypeExercise   = "exercise"
	ContentTypeStructured = "structured"
)

// ChunkMetadata is the descriptive payload stored next to each vector.
type ChunkMetadata struct {
	ContentType string   `json:"content_type" bson:"content_type"`
	SourceFile  string   `json:"source_file" bson:"source_file"`
	Title       string   `json:"title,omitempty" bson:"title,omitempty"`
	Tags        []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Position    int      `json:"position" bson:"position"`
	StartSec    int      `json:"start_sec,omitempty" bson:"start_sec,omitempty"`
	EndSec      int      `json:"end_sec,omitempty" bson:"end_sec,omitempty"`
}

// Chunk is a unit of indexed text with its embedding. ChunkID is derived
// from source ID plus ordinal so re-indexing unchanged content keeps IDs
// stable for downstream consumers.
type Chunk struct {
	ChunkID   string        `json:"chunk_id" bson:"chunk_id"`
	SourceID  string        `json:"source_id" bson:"source_id"`
	Text      string        `json:"text" bson:"text"`
	Embedding []float32     `json:"embedding,omitempty" bson:"vector,omitempty"`
	Metadata  ChunkMetadata `json:"metadata" bson:"metadata"`
}

// ScoredChunk carries both the raw vector similarity and the rerank score
// so callers can explain why a chunk was chosen.
type ScoredChunk struct {
	Chunk       Chunk   `json:"chunk"`
	Similarity  float64 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
	KeywordHits int     `json:"keyword_hits"`
}

// RetrievalResult is the ordered output of a search. An empty result means
// "insufficient context", never an error.
type RetrievalResult struct {
	Query  string        `json:"query"`
	Chunks []ScoredChunk `json:"chunks"`
}

// Empty reports whether retrieval found nothing usable.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}
