package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"adaptive-learning-platform/models"
)

// VideoGenerator renders a response as an mp4: synthesized narration over
// a static background image, muxed with ffmpeg. It produces its own audio
// track so a failed audio job never blocks the video and vice versa.
type VideoGenerator struct {
	synth      Synthesizer
	ffmpegPath string
	background string
	mediaDir   string
}

func NewVideoGenerator(synth Synthesizer, ffmpegPath, background, mediaDir string) *VideoGenerator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &VideoGenerator{
		synth:      synth,
		ffmpegPath: ffmpegPath,
		background: background,
		mediaDir:   mediaDir,
	}
}

func (g *VideoGenerator) Kind() models.MediaJobKind { return models.MediaKindVideo }

func (g *VideoGenerator) Render(ctx context.Context, interactionID, text string) (string, error) {
	if g.synth == nil {
		return "", fmt.Errorf("speech synthesizer not configured")
	}
	if g.background == "" {
		return "", fmt.Errorf("background image not configured")
	}
	if _, err := os.Stat(g.background); err != nil {
		return "", fmt.Errorf("background image unavailable: %w", err)
	}
	if err := os.MkdirAll(g.mediaDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	narration, err := g.synthesizeNarration(ctx, interactionID, text)
	if err != nil {
		return "", fmt.Errorf("narration failed: %w", err)
	}
	defer os.Remove(narration)

	outPath := filepath.Join(g.mediaDir, fmt.Sprintf("video_%s.mp4", interactionID))

	// Static image + narration, cut at the shorter stream (the audio)
	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-y",
		"-loop", "1",
		"-i", g.background,
		"-i", narration,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, truncateOutput(out))
	}

	return outPath, nil
}

func (g *VideoGenerator) synthesizeNarration(ctx context.Context, interactionID, text string) (string, error) {
	f, err := os.CreateTemp(g.mediaDir, fmt.Sprintf("narration_%s_*.mp3", interactionID))
	if err != nil {
		return "", err
	}
	path := f.Name()

	if err := g.synth.Synthesize(ctx, text, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func truncateOutput(out []byte) string {
	const limit = 512
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
