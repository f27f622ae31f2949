package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"

	"adaptive-learning-platform/internal/config"
)

// EmbeddingProvider turns text into a fixed-length vector. Indexing and
// query-time embedding must go through the same provider, or similarity
// search is meaningless.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// GeminiEmbedder produces embeddings via Google Generative AI
// (text-embedding-004 by default).
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiEmbedder{
		client:     client,
		model:      cfg.GoogleEmbeddingsModel,
		dimensions: cfg.VectorDimensions,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-embedder")
	ctx, span := tracer.Start(ctx, "gemini.embed_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.model", e.model),
		attribute.Int("embeddings.input_chars", len(text)),
	)

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
