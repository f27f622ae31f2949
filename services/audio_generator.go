package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"adaptive-learning-platform/models"
)

// Synthesizer converts text to speech, streaming the audio into w.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// AudioGenerator renders a response as an mp3 file under the media dir.
type AudioGenerator struct {
	synth    Synthesizer
	mediaDir string
}

func NewAudioGenerator(synth Synthesizer, mediaDir string) *AudioGenerator {
	return &AudioGenerator{synth: synth, mediaDir: mediaDir}
}

func (g *AudioGenerator) Kind() models.MediaJobKind { return models.MediaKindAudio }

func (g *AudioGenerator) Render(ctx context.Context, interactionID, text string) (string, error) {
	if g.synth == nil {
		return "", fmt.Errorf("speech synthesizer not configured")
	}
	if err := os.MkdirAll(g.mediaDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	path := filepath.Join(g.mediaDir, fmt.Sprintf("audio_%s.mp3", interactionID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}

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
