package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/services"
)

const (
	TaskReindex = "index:reindex"

	QueueIndexing = "indexing"
)

// ReindexPayload triggers one incremental pass. Reason is for logs only.
type ReindexPayload struct {
	Reason string `json:"reason"`
}

// NewReindexTask enqueues a reindex run. Retries are pointless here, the
// periodic schedule will pick up whatever a failed run missed.
func NewReindexTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReindexPayload{Reason: reason})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReindex,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue(QueueIndexing),
	), nil
}

// TaskProcessor runs queued work in the worker process.
type TaskProcessor struct {
	coordinator *services.IndexingCoordinator
}

func NewTaskProcessor(coordinator *services.IndexingCoordinator) *TaskProcessor {
	return &TaskProcessor{coordinator: coordinator}
}

func (p *TaskProcessor) HandleReindex(ctx context.Context, t *asynq.Task) error {
	var payload ReindexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Reindex task started", "reason", payload.Reason)

	if _, err := p.coordinator.Reindex(ctx); err != nil {
		return fmt.Errorf("reindex run failed: %w", err)
	}

	return nil
}

// Mux returns the handler mux for the worker server.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReindex, p.HandleReindex)
	return mux
}
