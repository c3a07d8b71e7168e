package stt

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/danuartha/swara/repository"
)

func TestMockTranscribeAudio(t *testing.T) {
	service := NewMockSpeechToText(zap.NewNop())
	ctx := context.Background()
	config := repository.AudioConfig{SampleRate: 48000, Encoding: "LINEAR16"}

	if _, err := service.TranscribeAudio(ctx, nil, config); err == nil {
		t.Error("Expected error for empty audio")
	}

	transcript, err := service.TranscribeAudio(ctx, make([]byte, 6000), config)
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}
	if transcript != "Turn on the lights" {
		t.Errorf("Expected command transcript for medium audio, got %q", transcript)
	}

	transcript, _ = service.TranscribeAudio(ctx, make([]byte, 100), config)
	if transcript == "" {
		t.Error("Expected a transcript for short audio")
	}
}
