package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	TokensUsed       metric.Int64Counter
	EmbeddingCalls   metric.Int64Counter
	IndexingDuration metric.Float64Histogram
	MediaJobOutcomes metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("adaptive-learning-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	embeddingCalls, err := meter.Int64Counter(
		"embeddings.calls.total",
		metric.WithDescription("Total embedding provider calls"),
	)
	if err != nil {
		return nil, err
	}

	indexingDuration, err := meter.Float64Histogram(
		"indexing.run.duration",
		metric.WithDescription("Reindex run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	mediaJobOutcomes, err := meter.Int64Counter(
		"media.jobs.outcomes",
		metric.WithDescription("Terminal media job outcomes by kind and status"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:   requestCounter,
		RequestDuration:  requestDuration,
		TokensUsed:       tokensUsed,
		EmbeddingCalls:   embeddingCalls,
		IndexingDuration: indexingDuration,
		MediaJobOutcomes: mediaJobOutcomes,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordEmbeddingCall records one embedding provider invocation
func (m *Metrics) RecordEmbeddingCall(purpose string) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.purpose", purpose), // "index" or "query"
	}

	m.EmbeddingCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordIndexingRun records a completed reindex run
func (m *Metrics) RecordIndexingRun(duration float64, failed int) {
	attrs := []attribute.KeyValue{
		attribute.Bool("indexing.had_failures", failed > 0),
	}

	m.IndexingDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordMediaJob records a terminal media job outcome
func (m *Metrics) RecordMediaJob(kind, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("media.kind", kind),
		attribute.String("media.status", status),
	}

	m.MediaJobOutcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
