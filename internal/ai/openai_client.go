package ai

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient wraps the OpenAI API for the two provider roles the
// platform delegates there: speech synthesis for audio renderings and
// Whisper transcription for video source material.
type OpenAIClient struct {
	client   openai.Client
	ttsModel string
	ttsVoice string
}

func NewOpenAIClient(apiKey, ttsModel, ttsVoice string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	return &OpenAIClient{
		client:   openai.NewClient(option.WithAPIKey(apiKey)),
		ttsModel: ttsModel,
		ttsVoice: ttsVoice,
	}, nil
}

// Transcribe runs Whisper over a local audio/video file and returns the
// full transcript text.
func (c *OpenAIClient) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	transcription, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return transcription.Text, nil
}

// Synthesize converts text to speech and streams the audio into w.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string, w io.Writer) error {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.ttsModel),
		Voice: openai.AudioSpeechNewParamsVoice(c.ttsVoice),
		Input: text,
	})
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to stream audio: %w", err)
	}

	return nil
}
