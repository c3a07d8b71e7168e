package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danuartha/swara/repository"
)

// MockTextToSpeech is a placeholder implementation for speech synthesis. It
// emits deterministic pseudo-audio derived from the input text so callers
// can exercise the streaming contract without a real backend.
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) repository.TextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
	}
}

// SynthesizeSpeech implements repository.TextToSpeech
func (m *MockTextToSpeech) SynthesizeSpeech(ctx context.Context, text string, config repository.VoiceConfig) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.logger.Info("Synthesizing mock speech",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", config.VoiceID))

	audioChan := make(chan []byte, 4)
	go func() {
		defer close(audioChan)
		// One chunk per word keeps the stream shape realistic.
		for _, word := range strings.Fields(text) {
			select {
			case audioChan <- []byte(word):
			case <-ctx.Done():
				return
			}
		}
	}()
	return audioChan, nil
}
