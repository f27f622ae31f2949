package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/telemetry"
	"adaptive-learning-platform/models"
)

// MediaRenderer produces one artifact kind for a response.
type MediaRenderer interface {
	Kind() models.MediaJobKind
	Render(ctx context.Context, interactionID, text string) (string, error)
}

// MediaOrchestrator launches renderings as in-process goroutines and
// tracks their state per interaction. Status polling never blocks on a
// running job, and jobs of the same interaction fail independently.
type MediaOrchestrator struct {
	renderers []MediaRenderer
	metrics   *telemetry.Metrics
	timeout   time.Duration

	mu   sync.RWMutex
	jobs map[string]map[models.MediaJobKind]*models.MediaJob // interactionID -> kind -> job
}

func NewMediaOrchestrator(renderers []MediaRenderer, metrics *telemetry.Metrics, timeout time.Duration) *MediaOrchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &MediaOrchestrator{
		renderers: renderers,
		metrics:   metrics,
		timeout:   timeout,
		jobs:      make(map[string]map[models.MediaJobKind]*models.MediaJob),
	}
}

// Dispatch starts one job per renderer for the interaction and returns
// immediately. A re-dispatch for the same interaction supersedes the
// previous jobs; late completions of superseded jobs are discarded.
func (o *MediaOrchestrator) Dispatch(interactionID, text string) []models.MediaJob {
	var snapshot []models.MediaJob

	o.mu.Lock()
	byKind := make(map[models.MediaJobKind]*models.MediaJob, len(o.renderers))
	for _, renderer := range o.renderers {
		job := &models.MediaJob{
			JobID:         uuid.NewString(),
			InteractionID: interactionID,
			Kind:          renderer.Kind(),
			Status:        models.MediaStatusPending,
		}
		byKind[renderer.Kind()] = job
		snapshot = append(snapshot, *job)
	}
	o.jobs[interactionID] = byKind
	o.mu.Unlock()

	for _, renderer := range o.renderers {
		jobID := byKind[renderer.Kind()].JobID
		go o.run(renderer, interactionID, jobID, text)
	}

	return snapshot
}

func (o *MediaOrchestrator) run(renderer MediaRenderer, interactionID, jobID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if !o.transition(interactionID, jobID, func(job *models.MediaJob) {
		job.Status = models.MediaStatusRunning
		job.StartedAt = time.Now()
	}) {
		return // superseded before it even started
	}

	path, err := renderer.Render(ctx, interactionID, text)

	status := models.MediaStatusSucceeded
	applied := o.transition(interactionID, jobID, func(job *models.MediaJob) {
		job.FinishedAt = time.Now()
		if err != nil {
			job.Status = models.MediaStatusFailed
			job.Error = err.Error()
			return
		}
		job.Status = models.MediaStatusSucceeded
		job.ArtifactPath = path
	})
	if !applied {
		return
	}
	if err != nil {
		status = models.MediaStatusFailed
		logger.Error("Media job failed",
			"interaction_id", interactionID,
			"kind", string(renderer.Kind()),
			"error", err)
	} else {
		logger.Info("Media job completed",
			"interaction_id", interactionID,
			"kind", string(renderer.Kind()),
			"artifact", path)
	}

	if o.metrics != nil {
		o.metrics.RecordMediaJob(string(renderer.Kind()), string(status))
	}
}

// transition applies fn to the job only if it is still the current one
// for its interaction. Returns false for superseded jobs.
func (o *MediaOrchestrator) transition(interactionID, jobID string, fn func(*models.MediaJob)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	byKind, ok := o.jobs[interactionID]
	if !ok {
		return false
	}
	for _, job := range byKind {
		if job.JobID == jobID {
			fn(job)
			return true
		}
	}
	return false
}

// Status returns the current poll view for an interaction. Unknown
// interactions yield an empty status rather than an error.
func (o *MediaOrchestrator) Status(interactionID string) models.MediaStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := models.MediaStatus{InteractionID: interactionID}
	byKind, ok := o.jobs[interactionID]
	if !ok {
		return status
	}

	for _, job := range byKind {
		status.Jobs = append(status.Jobs, *job)
		switch job.Kind {
		case models.MediaKindAudio:
			status.AudioReady = job.Status == models.MediaStatusSucceeded
			status.AudioPath = job.ArtifactPath
			status.AudioError = job.Error
		case models.MediaKindVideo:
			status.VideoReady = job.Status == models.MediaStatusSucceeded
			status.VideoPath = job.ArtifactPath
			status.VideoError = job.Error
		}
	}
	return status
}
