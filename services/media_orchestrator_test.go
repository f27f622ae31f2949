package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"adaptive-learning-platform/models"
)

type fakeRenderer struct {
	kind    models.MediaJobKind
	err     error
	calls   atomic.Int32
	blockOn chan struct{} // first call blocks until closed, if set
}

func (r *fakeRenderer) Kind() models.MediaJobKind { return r.kind }

func (r *fakeRenderer) Render(_ context.Context, interactionID, _ string) (string, error) {
	call := r.calls.Add(1)
	if r.blockOn != nil && call == 1 {
		<-r.blockOn
	}
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("/media/%s_%s_%d", r.kind, interactionID, call), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestOrchestratorBothJobsSucceed(t *testing.T) {
	audio := &fakeRenderer{kind: models.MediaKindAudio}
	video := &fakeRenderer{kind: models.MediaKindVideo}
	o := NewMediaOrchestrator([]MediaRenderer{audio, video}, nil, time.Minute)

	jobs := o.Dispatch("int-1", "resposta")
	if len(jobs) != 2 {
		t.Fatalf("dispatched %d jobs, want 2", len(jobs))
	}

	waitFor(t, 2*time.Second, func() bool {
		s := o.Status("int-1")
		return s.AudioReady && s.VideoReady
	})

	status := o.Status("int-1")
	if status.AudioPath == "" || status.VideoPath == "" {
		t.Errorf("artifact paths missing: %+v", status)
	}
}

func TestOrchestratorVideoFailureLeavesAudioIntact(t *testing.T) {
	audio := &fakeRenderer{kind: models.MediaKindAudio}
	video := &fakeRenderer{kind: models.MediaKindVideo, err: fmt.Errorf("ffmpeg exploded")}
	o := NewMediaOrchestrator([]MediaRenderer{audio, video}, nil, time.Minute)

	o.Dispatch("int-2", "resposta")

	waitFor(t, 2*time.Second, func() bool {
		s := o.Status("int-2")
		for _, job := range s.Jobs {
			if !job.Status.Terminal() {
				return false
			}
		}
		return len(s.Jobs) == 2
	})

	status := o.Status("int-2")
	if !status.AudioReady {
		t.Error("audio should succeed despite video failure")
	}
	if status.VideoReady {
		t.Error("video marked ready despite failure")
	}
	if status.VideoError == "" {
		t.Error("video error missing from status")
	}
}

func TestOrchestratorStatusNonBlockingWhileRunning(t *testing.T) {
	release := make(chan struct{})
	audio := &fakeRenderer{kind: models.MediaKindAudio, blockOn: release}
	o := NewMediaOrchestrator([]MediaRenderer{audio}, nil, time.Minute)

	o.Dispatch("int-3", "resposta")

	done := make(chan models.MediaStatus, 1)
	go func() { done <- o.Status("int-3") }()

	select {
	case status := <-done:
		if status.AudioReady {
			t.Error("job reported ready while renderer is still blocked")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Status blocked on a running job")
	}

	close(release)
	waitFor(t, 2*time.Second, func() bool { return o.Status("int-3").AudioReady })
}

func TestOrchestratorUnknownInteractionEmptyStatus(t *testing.T) {
	o := NewMediaOrchestrator(nil, nil, time.Minute)

	status := o.Status("never-dispatched")
	if status.AudioReady || status.VideoReady || len(status.Jobs) != 0 {
		t.Errorf("unexpected status for unknown interaction: %+v", status)
	}
}

func TestOrchestratorRedispatchSupersedesStaleCompletion(t *testing.T) {
	release := make(chan struct{})
	audio := &fakeRenderer{kind: models.MediaKindAudio, blockOn: release}
	o := NewMediaOrchestrator([]MediaRenderer{audio}, nil, time.Minute)

	o.Dispatch("int-4", "primeira resposta")
	waitFor(t, 2*time.Second, func() bool {
		s := o.Status("int-4")
		return len(s.Jobs) == 1 && s.Jobs[0].Status == models.MediaStatusRunning
	})

	second := o.Dispatch("int-4", "segunda resposta")

	waitFor(t, 2*time.Second, func() bool { return o.Status("int-4").AudioReady })
	pathAfterSecond := o.Status("int-4").AudioPath

	// Let the stale first job finish; its completion must be discarded.
	close(release)
	time.Sleep(50 * time.Millisecond)

	status := o.Status("int-4")
	if status.AudioPath != pathAfterSecond {
		t.Errorf("stale job overwrote artifact: %q -> %q", pathAfterSecond, status.AudioPath)
	}
	if len(status.Jobs) != 1 || status.Jobs[0].JobID != second[0].JobID {
		t.Error("current job should be the re-dispatched one")
	}
}
