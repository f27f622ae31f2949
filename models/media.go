package models

import "time"

// MediaJobKind distinguishes the two renderings launched per response.
type MediaJobKind string

const (
	MediaKindAudio MediaJobKind = "audio"
	MediaKindVideo MediaJobKind = "video"
)

// MediaJobStatus is the job lifecycle. Terminal states are final.
type MediaJobStatus string

const (
	MediaStatusPending   MediaJobStatus = "pending"
	MediaStatusRunning   MediaJobStatus = "running"
	MediaStatusSucceeded MediaJobStatus = "succeeded"
	MediaStatusFailed    MediaJobStatus = "failed"
)

// Terminal reports whether the job has finished, either way.
func (s MediaJobStatus) Terminal() bool {
	return s == MediaStatusSucceeded || s == MediaStatusFailed
}

// MediaJob is one asynchronous rendering of a response. Jobs for the same
// interaction are independent; a failed video never invalidates the audio
// or the already-delivered text.
type MediaJob struct {
	JobID         string         `json:"job_id"`
	InteractionID string         `json:"interaction_id"`
	Kind          MediaJobKind   `json:"kind"`
	Status        MediaJobStatus `json:"status"`
	ArtifactPath  string         `json:"artifact_path,omitempty"`
	Error         string         `json:"error,omitempty"`
	StartedAt     time.Time      `json:"started_at,omitempty"`
	FinishedAt    time.Time      `json:"finished_at,omitempty"`
}

// MediaStatus is the non-blocking poll view for one interaction.
type MediaStatus struct {
	InteractionID string     `json:"interaction_id"`
	AudioReady    bool       `json:"audio_ready"`
	AudioPath     string     `json:"audio_path,omitempty"`
	AudioError    string     `json:"audio_error,omitempty"`
	VideoReady    bool       `json:"video_ready"`
	VideoPath     string     `json:"video_path,omitempty"`
	VideoError    string     `json:"video_error,omitempty"`
	Jobs          []MediaJob `json:"jobs,omitempty"`
}
