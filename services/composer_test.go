package services

import (
	"context"
	"strings"
	"testing"

	"adaptive-learning-platform/models"
)

func composerIndex(t *testing.T) *MemoryVectorIndex {
	t.Helper()
	return seedIndex(t, []models.Chunk{
		{ChunkID: "a#0", SourceID: "a", Text: "x", Embedding: []float32{1, 0, 0},
			Metadata: models.ChunkMetadata{ContentType: models.ContentTypeText, SourceFile: "algebra.txt", Title: "Álgebra Linear"}},
		{ChunkID: "b#0", SourceID: "b", Text: "x", Embedding: []float32{1, 0, 0},
			Metadata: models.ChunkMetadata{ContentType: models.ContentTypeText, SourceFile: "calculo.txt", Title: "Cálculo I"}},
	})
}

func TestComposeOutOfScopeDeclinesWithoutLLM(t *testing.T) {
	gen := &scriptedGenerator{response: "não deveria ser chamado"}
	svc := NewComposerService(gen, composerIndex(t), 800)

	classification := models.Classification{InScope: false, Verbosity: models.VerbosityModerate}
	resp, err := svc.Compose(context.Background(), "int-1", "qual a capital da França?", classification, &models.RetrievalResult{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if gen.calls != 0 {
		t.Errorf("LLM called %d times for out-of-scope question, want 0", gen.calls)
	}
	if resp.InScope {
		t.Error("response marked in-scope")
	}
	if !strings.Contains(resp.Text, "fora do escopo") {
		t.Errorf("decline text missing, got %q", resp.Text)
	}
	if !strings.Contains(resp.Text, "Álgebra Linear") {
		t.Errorf("suggested topics missing from decline: %q", resp.Text)
	}
}

func TestComposeOutOfScopeSuggestsAtMostThreeTopics(t *testing.T) {
	var chunks []models.Chunk
	titles := []string{"T1", "T2", "T3", "T4", "T5"}
	for i, title := range titles {
		chunks = append(chunks, models.Chunk{
			ChunkID: string(rune('a'+i)) + "#0", SourceID: string(rune('a' + i)),
			Text: "x", Embedding: []float32{1, 0, 0},
			Metadata: models.ChunkMetadata{ContentType: models.ContentTypeText, Title: title},
		})
	}
	index := seedIndex(t, chunks)
	svc := NewComposerService(&scriptedGenerator{}, index, 800)

	topics := svc.suggestedTopics(context.Background(), 3)
	if len(topics) != 3 {
		t.Errorf("got %d topics, want 3", len(topics))
	}
}

func TestComposeInScopeUsesRetrievedContext(t *testing.T) {
	gen := &scriptedGenerator{response: "Matrizes são tabelas de números."}
	svc := NewComposerService(gen, composerIndex(t), 800)

	classification := models.Classification{
		InScope:   true,
		Maturity:  models.MaturityBeginner,
		Verbosity: models.VerbosityConcise,
	}
	retrieval := &models.RetrievalResult{
		Query: "o que são matrizes?",
		Chunks: []models.ScoredChunk{
			{Chunk: models.Chunk{ChunkID: "algebra.txt#0", SourceID: "algebra.txt", Text: "Matrizes representam transformações.",
				Metadata: models.ChunkMetadata{SourceFile: "algebra.txt"}}},
			{Chunk: models.Chunk{ChunkID: "algebra.txt#1", SourceID: "algebra.txt", Text: "Determinantes medem volume.",
				Metadata: models.ChunkMetadata{SourceFile: "algebra.txt"}}},
		},
	}

	resp, err := svc.Compose(context.Background(), "int-2", "o que são matrizes?", classification, retrieval)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if resp.Text != "Matrizes são tabelas de números." {
		t.Errorf("unexpected response text: %q", resp.Text)
	}
	if !resp.InScope {
		t.Error("response should be in scope")
	}
	if len(resp.SourcesUsed) != 1 || resp.SourcesUsed[0] != "algebra.txt" {
		t.Errorf("sources used = %v, want deduplicated [algebra.txt]", resp.SourcesUsed)
	}
}

func TestBuildContextRespectsBudget(t *testing.T) {
	svc := NewComposerService(&scriptedGenerator{}, NewMemoryVectorIndex(), 800)

	big := strings.Repeat("palavra ", 2000) // far beyond the context budget
	retrieval := &models.RetrievalResult{
		Chunks: []models.ScoredChunk{
			{Chunk: models.Chunk{ChunkID: "a#0", SourceID: "a", Text: big, Metadata: models.ChunkMetadata{SourceFile: "a.txt"}}},
			{Chunk: models.Chunk{ChunkID: "b#0", SourceID: "b", Text: big, Metadata: models.ChunkMetadata{SourceFile: "b.txt"}}},
		},
	}

	contextBlock, sources := svc.buildContext(retrieval)
	if len(sources) != 1 {
		t.Errorf("sources = %v, want only the first chunk within budget", sources)
	}
	if strings.Contains(contextBlock, "b.txt") {
		t.Error("second oversized chunk should have been dropped")
	}
}

func TestComposeSystemPromptReflectsClassification(t *testing.T) {
	svc := NewComposerService(&scriptedGenerator{}, NewMemoryVectorIndex(), 800)

	prompt := svc.buildSystemPrompt(models.Classification{
		InScope:      true,
		Maturity:     models.MaturityAdvanced,
		QuestionType: models.QuestionTypeTechnical,
		Verbosity:    models.VerbosityDetailed,
	})

	if !strings.Contains(prompt, "avançado") {
		t.Error("maturity instruction missing")
	}
	if !strings.Contains(prompt, "técnica") {
		t.Error("question type instruction missing")
	}
	if !strings.Contains(prompt, "detalhado") {
		t.Error("verbosity instruction missing")
	}
}
