package services

import (
	"context"
	"strings"
	"testing"

	"adaptive-learning-platform/models"
)

type fixedEmbedder struct {
	vector []float32
}

func (e fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return e.vector, nil
}

func (e fixedEmbedder) Dimensions() int { return len(e.vector) }

func seedIndex(t *testing.T, chunks []models.Chunk) *MemoryVectorIndex {
	t.Helper()
	index := NewMemoryVectorIndex()
	if err := index.Upsert(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	return index
}

func TestRetrieveEmptyIndexYieldsEmptyResult(t *testing.T) {
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, NewMemoryVectorIndex(), nil, nil, 3, 3)

	result, err := svc.Retrieve(context.Background(), "o que são matrizes?")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected empty result, got %d chunks", len(result.Chunks))
	}
}

func TestRetrieveBlankQueryNoEmbedding(t *testing.T) {
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, NewMemoryVectorIndex(), nil, nil, 3, 3)

	result, err := svc.Retrieve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !result.Empty() {
		t.Error("blank query should produce an empty result")
	}
}

func TestRerankTypeBonusRequiresMatchingIntent(t *testing.T) {
	// Identical vectors: similarity ties, the asked-for content type decides
	index := seedIndex(t, []models.Chunk{
		{
			ChunkID: "a#0", SourceID: "a", Text: "conteúdo geral",
			Embedding: []float32{1, 0, 0},
			Metadata:  models.ChunkMetadata{ContentType: models.ContentTypeStructured},
		},
		{
			ChunkID: "b#0", SourceID: "b", Text: "conteúdo geral",
			Embedding: []float32{1, 0, 0},
			Metadata:  models.ChunkMetadata{ContentType: models.ContentTypeExercise},
		},
	})

	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, index, nil, nil, 3, 3)

	result, err := svc.Retrieve(context.Background(), "quero exercícios sobre esse conteúdo")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}
	if result.Chunks[0].Chunk.ChunkID != "b#0" {
		t.Errorf("exercise chunk should rank first, got %s", result.Chunks[0].Chunk.ChunkID)
	}
	if result.Chunks[0].RerankScore <= result.Chunks[1].RerankScore {
		t.Error("exercise chunk should carry a higher rerank score")
	}
}

func TestRerankNoIntentLeavesSimilarityOrder(t *testing.T) {
	// A generic question grants no type bonus: the plain chunk with the
	// higher similarity must stay ahead of the exercise chunk.
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, NewMemoryVectorIndex(), nil, nil, 3, 3)

	candidates := []Candidate{
		{
			Chunk: models.Chunk{
				ChunkID: "plain#0", SourceID: "plain", Text: "matrizes em detalhe",
				Metadata: models.ChunkMetadata{ContentType: models.ContentTypeText},
			},
			Similarity: 1.0,
		},
		{
			Chunk: models.Chunk{
				ChunkID: "ex#0", SourceID: "ex", Text: "matrizes em detalhe",
				Metadata: models.ChunkMetadata{ContentType: models.ContentTypeExercise},
			},
			Similarity: 0.979,
		},
	}

	scored := svc.rerank("sobre matrizes", candidates)
	if scored[0].Chunk.ChunkID != "plain#0" {
		t.Fatalf("highest-similarity chunk should rank first, got %s", scored[0].Chunk.ChunkID)
	}
	for _, sc := range scored {
		want := sc.Similarity + keywordBonusPerTerm // "matrizes" hits both texts
		if diff := sc.RerankScore - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("chunk %s: rerank score = %f, want %f with no type bonus", sc.Chunk.ChunkID, sc.RerankScore, want)
		}
	}
}

func TestTypeBonusPerIntentVocabulary(t *testing.T) {
	cases := []struct {
		query       string
		contentType string
		want        float64
	}{
		{"quero praticar com uma questão", models.ContentTypeExercise, typeBonusExercise},
		{"tem algum vídeo para assistir?", models.ContentTypeVideo, typeBonusVideo},
		{"explique o conceito de matriz", models.ContentTypeText, typeBonusText},
		{"o que é uma matriz?", models.ContentTypeExercise, 0},
		{"quero exercícios", models.ContentTypeVideo, 0},
		{"me mostra um tutorial", models.ContentTypeText, 0},
	}

	for _, tc := range cases {
		got := typeBonus(tc.contentType, strings.ToLower(tc.query))
		if got != tc.want {
			t.Errorf("typeBonus(%q, %q) = %f, want %f", tc.contentType, tc.query, got, tc.want)
		}
	}
}

func TestRerankKeywordBonus(t *testing.T) {
	index := seedIndex(t, []models.Chunk{
		{
			ChunkID: "a#0", SourceID: "a", Text: "nada relevante aqui",
			Embedding: []float32{1, 0, 0},
			Metadata:  models.ChunkMetadata{ContentType: models.ContentTypeStructured},
		},
		{
			ChunkID: "b#0", SourceID: "b", Text: "matrizes e determinantes explicados",
			Embedding: []float32{1, 0, 0},
			Metadata:  models.ChunkMetadata{ContentType: models.ContentTypeStructured},
		},
	})

	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, index, nil, nil, 3, 3)

	result, err := svc.Retrieve(context.Background(), "matrizes determinantes")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if result.Chunks[0].Chunk.ChunkID != "b#0" {
		t.Errorf("keyword-matching chunk should rank first, got %s", result.Chunks[0].Chunk.ChunkID)
	}
	if result.Chunks[0].KeywordHits != 2 {
		t.Errorf("keyword hits = %d, want 2", result.Chunks[0].KeywordHits)
	}
}

func TestRerankKeywordBonusCapped(t *testing.T) {
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, NewMemoryVectorIndex(), nil, nil, 3, 3)

	candidates := []Candidate{{
		Chunk: models.Chunk{
			ChunkID: "a#0", SourceID: "a",
			Text:     "matrizes determinantes autovalores autovetores inversas",
			Metadata: models.ChunkMetadata{ContentType: models.ContentTypeStructured},
		},
		Similarity: 0.5,
	}}

	scored := svc.rerank("matrizes determinantes autovalores autovetores inversas", candidates)
	if len(scored) != 1 {
		t.Fatalf("got %d scored chunks", len(scored))
	}

	want := 0.5 + keywordBonusCap
	if diff := scored[0].RerankScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("rerank score = %f, want capped at %f", scored[0].RerankScore, want)
	}
}

func TestRetrieveDeterministicOrdering(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkID: "a#0", SourceID: "a", Text: "x", Embedding: []float32{1, 0, 0}, Metadata: models.ChunkMetadata{ContentType: models.ContentTypeStructured}},
		{ChunkID: "b#0", SourceID: "b", Text: "x", Embedding: []float32{1, 0, 0}, Metadata: models.ChunkMetadata{ContentType: models.ContentTypeStructured}},
		{ChunkID: "c#0", SourceID: "c", Text: "x", Embedding: []float32{1, 0, 0}, Metadata: models.ChunkMetadata{ContentType: models.ContentTypeStructured}},
	}
	index := seedIndex(t, chunks)
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, index, nil, nil, 3, 3)

	first, err := svc.Retrieve(context.Background(), "pergunta")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := svc.Retrieve(context.Background(), "pergunta")
		if err != nil {
			t.Fatal(err)
		}
		for j := range first.Chunks {
			if first.Chunks[j].Chunk.ChunkID != again.Chunks[j].Chunk.ChunkID {
				t.Fatalf("ordering changed between runs at position %d", j)
			}
		}
	}
}

func TestRetrieveRespectsMaxResults(t *testing.T) {
	var chunks []models.Chunk
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		chunks = append(chunks, models.Chunk{
			ChunkID: id + "#0", SourceID: id, Text: "t",
			Embedding: []float32{1, 0, 0},
			Metadata:  models.ChunkMetadata{ContentType: models.ContentTypeStructured},
		})
	}
	index := seedIndex(t, chunks)
	svc := NewRetrievalService(fixedEmbedder{vector: []float32{1, 0, 0}}, index, nil, nil, 3, 3)

	result, err := svc.Retrieve(context.Background(), "pergunta")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(result.Chunks))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors similarity = %f, want ~1", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got > 0.001 {
		t.Errorf("orthogonal vectors similarity = %f, want ~0", got)
	}
	if got := CosineSimilarity(nil, []float32{1}); got != 0 {
		t.Errorf("mismatched vectors similarity = %f, want 0", got)
	}
}
