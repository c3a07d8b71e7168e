package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/danuartha/swara/repository"
)

// WhisperSpeechToText implements SpeechToText using OpenAI's Whisper API.
type WhisperSpeechToText struct {
	client openai.Client
	model  openai.AudioModel
}

// Ensure WhisperSpeechToText implements the SpeechToText interface
var _ repository.SpeechToText = (*WhisperSpeechToText)(nil)

// NewWhisperSpeechToText creates a Whisper-backed transcriber.
func NewWhisperSpeechToText(apiKey string) (*WhisperSpeechToText, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &WhisperSpeechToText{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.AudioModelWhisper1,
	}, nil
}

// TranscribeAudio converts audio data to text. The audio is uploaded as a
// WAV file; Whisper detects the language itself so config.Language is only a
// hint.
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repository.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	params := openai.AudioTranscriptionNewParams{
		Model: w.model,
		File:  openai.File(bytes.NewReader(audioData), "utterance.wav", "audio/wav"),
	}
	if config.Language != "" {
		params.Language = openai.String(config.Language)
	}

	result, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}
	return result.Text, nil
}
