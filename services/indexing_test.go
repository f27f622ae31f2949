package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	// Deterministic toy vector, length-based so different texts differ
	return []float32{float32(len(text)), 1, 0.5}, nil
}

func (e *countingEmbedder) Dimensions() int { return 3 }

func (e *countingEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type failingExtractor struct{}

func (failingExtractor) ContentType() string { return "text" }

func (failingExtractor) Extract(_ context.Context, path string) ([]ExtractedDoc, error) {
	return nil, fmt.Errorf("simulated extraction failure")
}

func newTestCoordinator(t *testing.T, resourcesDir string) (*IndexingCoordinator, *countingEmbedder, *MemoryVectorIndex) {
	t.Helper()

	registry := NewExtractorRegistry()
	registry.Register(TextExtractor{}, ".txt")
	registry.Register(failingExtractor{}, ".bad")

	embedder := &countingEmbedder{}
	index := NewMemoryVectorIndex()
	store := NewFingerprintStore(filepath.Join(t.TempDir(), "state.json"))
	chunker := NewChunkingService(1000, 200, 100)

	coord := NewIndexingCoordinator(resourcesDir, registry, chunker, embedder, index, store, nil)
	return coord, embedder, index
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReindexFirstRunIndexesEverything(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")
	writeSource(t, dir, "calculo.txt", "Derivadas medem taxas de variação.")
	writeSource(t, dir, "geometria.txt", "Triângulos têm três lados.")

	coord, embedder, index := newTestCoordinator(t, dir)

	report, err := coord.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if report.Indexed != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 3 indexed", report)
	}
	if embedder.count() == 0 {
		t.Error("expected embedding calls on first run")
	}

	count, _ := index.Count(context.Background())
	if count == 0 {
		t.Error("no chunks stored after first run")
	}
}

func TestReindexSecondRunSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")
	writeSource(t, dir, "calculo.txt", "Derivadas medem taxas de variação.")

	coord, embedder, _ := newTestCoordinator(t, dir)

	if _, err := coord.Reindex(context.Background()); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}
	callsAfterFirst := embedder.count()

	report, err := coord.Reindex(context.Background())
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}

	if report.Skipped != 2 || report.Indexed != 0 {
		t.Errorf("report = %+v, want 2 skipped and 0 indexed", report)
	}
	if embedder.count() != callsAfterFirst {
		t.Errorf("second run made %d extra embedding calls", embedder.count()-callsAfterFirst)
	}
}

func TestReindexReprocessesChangedSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Conteúdo original sobre matrizes.")
	writeSource(t, dir, "calculo.txt", "Derivadas medem taxas de variação.")

	coord, _, _ := newTestCoordinator(t, dir)

	if _, err := coord.Reindex(context.Background()); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}

	writeSource(t, dir, "algebra.txt", "Conteúdo revisado com determinantes e autovalores.")

	report, err := coord.Reindex(context.Background())
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}

	if report.Indexed != 1 {
		t.Errorf("indexed = %d, want 1 (only the changed source)", report.Indexed)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", report.Skipped)
	}
}

func TestReindexRemovesDeletedSourceChunks(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")
	writeSource(t, dir, "calculo.txt", "Derivadas medem taxas de variação.")

	coord, _, index := newTestCoordinator(t, dir)
	ctx := context.Background()

	if _, err := coord.Reindex(ctx); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "calculo.txt")); err != nil {
		t.Fatal(err)
	}

	report, err := coord.Reindex(ctx)
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if report.Removed != 1 {
		t.Errorf("removed = %d, want 1", report.Removed)
	}

	ids, _ := index.SourceIDs(ctx)
	for _, id := range ids {
		if id == "calculo.txt" {
			t.Error("chunks for deleted source still present")
		}
	}

	if _, ok := coord.State().Sources["calculo.txt"]; ok {
		t.Error("deleted source still tracked in state")
	}
}

func TestReindexIsolatesFailingSource(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")
	writeSource(t, dir, "broken.bad", "anything")

	coord, _, index := newTestCoordinator(t, dir)
	ctx := context.Background()

	report, err := coord.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
	if report.Indexed != 1 {
		t.Errorf("indexed = %d, want 1 (healthy source must still index)", report.Indexed)
	}
	if len(report.Errors) != 1 {
		t.Errorf("errors = %v, want one entry", report.Errors)
	}

	ids, _ := index.SourceIDs(ctx)
	if len(ids) != 1 || ids[0] != "algebra.txt" {
		t.Errorf("indexed sources = %v, want only algebra.txt", ids)
	}

	if _, ok := coord.State().Sources["broken.bad"]; ok {
		t.Error("failed source recorded as indexed, it would never retry")
	}
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (i *countingInvalidator) Invalidate(_ context.Context) {
	i.mu.Lock()
	i.calls++
	i.mu.Unlock()
}

func (i *countingInvalidator) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

func TestReindexInvalidatesCacheOnlyWhenIndexChanged(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")

	coord, _, _ := newTestCoordinator(t, dir)
	invalidator := &countingInvalidator{}
	coord.SetCacheInvalidator(invalidator)
	ctx := context.Background()

	if _, err := coord.Reindex(ctx); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}
	if invalidator.count() != 1 {
		t.Errorf("invalidations after indexing run = %d, want 1", invalidator.count())
	}

	// All sources unchanged: cached retrieval results are still valid
	if _, err := coord.Reindex(ctx); err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if invalidator.count() != 1 {
		t.Errorf("no-op run invalidated the cache, calls = %d", invalidator.count())
	}

	if err := os.Remove(filepath.Join(dir, "algebra.txt")); err != nil {
		t.Fatal(err)
	}
	if _, err := coord.Reindex(ctx); err != nil {
		t.Fatalf("third Reindex: %v", err)
	}
	if invalidator.count() != 2 {
		t.Errorf("removal run invalidations = %d, want 2 total", invalidator.count())
	}
}

func TestReindexStableChunkIDs(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "algebra.txt", "Matrizes representam transformações lineares.")

	coord, _, index := newTestCoordinator(t, dir)
	ctx := context.Background()

	if _, err := coord.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	candidates, _ := index.Query(ctx, []float32{1, 1, 1}, 10)
	if len(candidates) == 0 {
		t.Fatal("no chunks indexed")
	}
	if candidates[0].Chunk.ChunkID != "algebra.txt#0" {
		t.Errorf("chunk ID = %q, want algebra.txt#0", candidates[0].Chunk.ChunkID)
	}
}
