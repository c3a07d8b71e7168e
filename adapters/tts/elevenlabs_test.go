package tts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/danuartha/swara/repository"
)

func TestValidateElevenLabsConfig(t *testing.T) {
	if err := ValidateElevenLabsConfig(ElevenLabsConfig{}); err == nil {
		t.Error("Expected error when API key is not set")
	}

	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "key", Stability: 1.5}); err == nil {
		t.Error("Expected error for stability above 1")
	}

	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "key", Clarity: -0.1}); err == nil {
		t.Error("Expected error for negative clarity")
	}

	if err := ValidateElevenLabsConfig(ElevenLabsConfig{APIKey: "key"}); err != nil {
		t.Errorf("Expected minimal config to validate, got %v", err)
	}
}

func TestNewElevenLabsTTSDefaults(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}

	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}

	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.outputFormat)
	}
}

func TestElevenLabsSynthesizeSpeechEmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx := context.Background()
	if _, err = tts.SynthesizeSpeech(ctx, "", repository.VoiceConfig{}); err == nil {
		t.Error("Expected error for empty text")
	}

	if _, err = tts.SynthesizeSpeech(ctx, "   ", repository.VoiceConfig{}); err == nil {
		t.Error("Expected error for whitespace-only text")
	}
}

func TestElevenLabsSynthesizeSpeechStreams(t *testing.T) {
	logger := zaptest.NewLogger(t)

	audio := []byte("pcm-audio-bytes-from-the-backend")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-api-key" {
			t.Errorf("Expected xi-api-key header, got '%s'", got)
		}
		if got := r.Header.Get("Accept"); got != "audio/pcm" {
			t.Errorf("Expected audio/pcm accept header for pcm format, got '%s'", got)
		}
		if !strings.Contains(r.URL.Path, "/text-to-speech/override-voice/stream") {
			t.Errorf("Expected voice override in path, got '%s'", r.URL.Path)
		}
		w.Write(audio)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
		ChunkSize:  8,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	chunks, err := tts.SynthesizeSpeech(context.Background(), "Hello world",
		repository.VoiceConfig{VoiceID: "override-voice"})
	if err != nil {
		t.Fatalf("SynthesizeSpeech failed: %v", err)
	}

	var received bytes.Buffer
	for chunk := range chunks {
		received.Write(chunk)
	}

	if !bytes.Equal(received.Bytes(), audio) {
		t.Errorf("Expected streamed audio to match backend output, got %d bytes", received.Len())
	}
}

func TestElevenLabsSynthesizeSpeechBackendError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.SynthesizeSpeech(context.Background(), "Hello", repository.VoiceConfig{}); err == nil {
		t.Error("Expected error when the backend rejects the request")
	}
}
