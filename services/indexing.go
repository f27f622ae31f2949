package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"adaptive-learning-platform/internal/ai"
	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/telemetry"
	"adaptive-learning-platform/models"
)

// CacheInvalidator clears derived caches after the index changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// IndexingCoordinator owns the reindex cycle: discover sources, diff
// fingerprints against the committed state, extract/chunk/embed only what
// changed, delete what disappeared, then swap in the new state
// atomically. One coordinator per process; Reindex runs are serialized.
type IndexingCoordinator struct {
	resourcesDir string
	extractors   *ExtractorRegistry
	chunker      *ChunkingService
	embedder     ai.EmbeddingProvider
	index        VectorIndex
	store        *FingerprintStore
	metrics      *telemetry.Metrics
	cache        CacheInvalidator

	mu      sync.RWMutex // guards state
	state   *models.IndexState
	running sync.Mutex // serializes Reindex runs
}

func NewIndexingCoordinator(
	resourcesDir string,
	extractors *ExtractorRegistry,
	chunker *ChunkingService,
	embedder ai.EmbeddingProvider,
	index VectorIndex,
	store *FingerprintStore,
	metrics *telemetry.Metrics,
) *IndexingCoordinator {
	return &IndexingCoordinator{
		resourcesDir: resourcesDir,
		extractors:   extractors,
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		store:        store,
		metrics:      metrics,
		state:        models.NewIndexState(),
	}
}

// SetCacheInvalidator registers a cache to clear after any reindex run
// that changed the index. Call before the first Reindex.
func (c *IndexingCoordinator) SetCacheInvalidator(cache CacheInvalidator) {
	c.cache = cache
}

// State returns a copy of the committed index snapshot. Safe to call
// concurrently with a running reindex; readers always see a complete
// state and cannot mutate the live one.
func (c *IndexingCoordinator) State() *models.IndexState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Reindex performs one incremental pass over the resources directory.
// Unchanged sources are skipped without extraction or embedding; a
// failing source is reported and left out of the new state so the next
// run retries it.
func (c *IndexingCoordinator) Reindex(ctx context.Context) (*models.IndexReport, error) {
	c.running.Lock()
	defer c.running.Unlock()

	start := time.Now()
	report := &models.IndexReport{}

	previous, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load index state: %w", err)
	}

	descriptors, err := c.discoverSources()
	if err != nil {
		return nil, fmt.Errorf("failed to scan resources dir: %w", err)
	}

	staged := models.NewIndexState()
	present := make(map[string]bool, len(descriptors))

	for _, desc := range descriptors {
		present[desc.SourceID] = true

		fp, err := FingerprintSource(desc.Path)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", desc.SourceID, err))
			// Keep the old record so the source is not treated as removed
			if rec, ok := previous.Sources[desc.SourceID]; ok {
				staged.Sources[desc.SourceID] = rec
			}
			continue
		}

		if rec, ok := previous.Sources[desc.SourceID]; ok && rec.Fingerprint.Equal(fp) {
			report.Skipped++
			staged.Sources[desc.SourceID] = rec
			logger.Debug("Source unchanged, skipping", "source_id", desc.SourceID)
			continue
		}

		rec, err := c.indexSource(ctx, desc, fp)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			logger.Error("Failed to index source", "source_id", desc.SourceID, "error", err)
			if old, ok := previous.Sources[desc.SourceID]; ok {
				staged.Sources[desc.SourceID] = old
			}
			continue
		}

		report.Indexed++
		staged.Sources[desc.SourceID] = *rec
		logger.Info("Indexed source",
			"source_id", desc.SourceID,
			"content_type", rec.ContentType,
			"chunks", rec.ChunkCount)
	}

	// Sources that existed last run but are gone from disk: drop their
	// chunks so retrieval never surfaces orphans.
	for sourceID := range previous.Sources {
		if present[sourceID] {
			continue
		}
		if err := c.index.DeleteSource(ctx, sourceID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("remove %s: %v", sourceID, err))
			staged.Sources[sourceID] = previous.Sources[sourceID]
			continue
		}
		report.Removed++
		logger.Info("Removed source", "source_id", sourceID)
	}

	staged.UpdatedAt = time.Now()

	if err := c.store.Commit(staged); err != nil {
		return nil, fmt.Errorf("failed to persist index state: %w", err)
	}

	c.mu.Lock()
	c.state = staged
	c.mu.Unlock()

	// Cached retrieval results may reference chunks that no longer exist
	// or miss new ones; drop them whenever the index content moved.
	if c.cache != nil && (report.Indexed > 0 || report.Removed > 0) {
		c.cache.Invalidate(ctx)
	}

	report.Duration = time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordIndexingRun(report.Duration.Seconds(), report.Failed)
	}

	logger.Info("Reindex complete",
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"removed", report.Removed,
		"failed", report.Failed,
		"duration", report.Duration.String())

	return report, nil
}

// indexSource runs the full pipeline for one new or changed source.
func (c *IndexingCoordinator) indexSource(ctx context.Context, desc models.SourceDescriptor, fp models.Fingerprint) (*models.SourceRecord, error) {
	extractor, ok := c.extractors.For(desc.Path)
	if !ok {
		return nil, &ExtractionError{SourceID: desc.SourceID, Err: fmt.Errorf("unsupported file type")}
	}

	docs, err := extractor.Extract(ctx, desc.Path)
	if err != nil {
		return nil, &ExtractionError{SourceID: desc.SourceID, Err: err}
	}

	chunks, err := c.buildChunks(ctx, desc.SourceID, docs)
	if err != nil {
		return nil, fmt.Errorf("embedding failed for %s: %w", desc.SourceID, err)
	}

	// Replace, not merge: a changed source may have fewer chunks than
	// before, and stale chunks must not survive the update.
	if err := c.index.DeleteSource(ctx, desc.SourceID); err != nil {
		return nil, fmt.Errorf("failed to clear old chunks for %s: %w", desc.SourceID, err)
	}
	if err := c.index.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks for %s: %w", desc.SourceID, err)
	}

	return &models.SourceRecord{
		SourceID:      desc.SourceID,
		Fingerprint:   fp,
		ContentType:   extractor.ContentType(),
		LastIndexedAt: time.Now(),
		ChunkCount:    len(chunks),
	}, nil
}

// buildChunks chunks every extracted document and embeds each piece.
// Chunk IDs are "<source_id>#<ordinal>" with the ordinal running across
// all documents of the source, so re-extraction of identical content
// yields identical IDs.
func (c *IndexingCoordinator) buildChunks(ctx context.Context, sourceID string, docs []ExtractedDoc) ([]models.Chunk, error) {
	var chunks []models.Chunk
	ordinal := 0

	for _, doc := range docs {
		pieces := c.chunker.ChunkText(doc.Text)
		for _, piece := range pieces {
			vector, err := c.embedder.Embed(ctx, piece.Text)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: %w", ordinal, err)
			}
			if c.metrics != nil {
				c.metrics.RecordEmbeddingCall("index")
			}

			metadata := doc.Metadata
			metadata.Tags = append(metadata.Tags, piece.Keywords...)

			chunks = append(chunks, models.Chunk{
				ChunkID:   fmt.Sprintf("%s#%d", sourceID, ordinal),
				SourceID:  sourceID,
				Text:      piece.Text,
				Embedding: vector,
				Metadata:  metadata,
			})
			ordinal++
		}
	}

	return chunks, nil
}

// discoverSources lists supported files in the resources directory.
// The file name is the stable source ID.
func (c *IndexingCoordinator) discoverSources() ([]models.SourceDescriptor, error) {
	entries, err := os.ReadDir(c.resourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []models.SourceDescriptor
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(c.resourcesDir, entry.Name())
		if !c.extractors.Supported(path) {
			continue
		}
		out = append(out, models.SourceDescriptor{
			SourceID: entry.Name(),
			Path:     path,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}
