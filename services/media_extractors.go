package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"adaptive-learning-platform/models"
)

// ImageDescriber produces a textual description of an image, delegated to
// a vision-capable model.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Transcriber produces a transcript for an audio/video file.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// ImageExtractor indexes infographics and slides by their described
// content.
type ImageExtractor struct {
	describer ImageDescriber
}

func NewImageExtractor(describer ImageDescriber) *ImageExtractor {
	return &ImageExtractor{describer: describer}
}

func (*ImageExtractor) ContentType() string { return models.ContentTypeImage }

func (e *ImageExtractor) Extract(ctx context.Context, path string) ([]ExtractedDoc, error) {
	if e.describer == nil {
		return nil, fmt.Errorf("image describer not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mimeType := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mimeType = "image/png"
	}

	description, err := e.describer.DescribeImage(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		description = "Visual content available"
	}

	return []ExtractedDoc{{
		Text: description,
		Metadata: models.ChunkMetadata{
			ContentType: models.ContentTypeImage,
			SourceFile:  filepath.Base(path),
		},
	}}, nil
}

// VideoExtractor transcribes lecture videos and splits the transcript
// into fixed-duration windows so retrieval can point at a position in the
// video, not just the file.
type VideoExtractor struct {
	transcriber Transcriber
	windowSec   int
	wordsPerSec float64
}

func NewVideoExtractor(transcriber Transcriber, windowSec int) *VideoExtractor {
	if windowSec <= 0 {
		windowSec = 25
	}
	return &VideoExtractor{
		transcriber: transcriber,
		windowSec:   windowSec,
		wordsPerSec: 2.5, // average speaking rate, good enough for offsets
	}
}

func (*VideoExtractor) ContentType() string { return models.ContentTypeVideo }

func (e *VideoExtractor) Extract(ctx context.Context, path string) ([]ExtractedDoc, error) {
	if e.transcriber == nil {
		return nil, fmt.Errorf("transcriber not configured")
	}

	transcript, err := e.transcriber.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}

	words := strings.Fields(transcript)
	if len(words) == 0 {
		return nil, fmt.Errorf("empty transcript for %s", path)
	}

	wordsPerWindow := int(float64(e.windowSec) * e.wordsPerSec)
	if wordsPerWindow < 1 {
		wordsPerWindow = 1
	}

	base := filepath.Base(path)
	var docs []ExtractedDoc
	for i := 0; i < len(words); i += wordsPerWindow {
		end := i + wordsPerWindow
		if end > len(words) {
			end = len(words)
		}

		window := len(docs)
		docs = append(docs, ExtractedDoc{
			Text: strings.Join(words[i:end], " "),
			Metadata: models.ChunkMetadata{
				ContentType: models.ContentTypeVideo,
				SourceFile:  base,
				Position:    window + 1,
				StartSec:    window * e.windowSec,
				EndSec:      (window + 1) * e.windowSec,
			},
		})
	}

	return docs, nil
}
