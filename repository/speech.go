package repository

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// TextToSpeech abstracts text-to-speech services. Synthesized audio is
// delivered as a stream of chunks on the returned channel; the channel is
// closed when synthesis finishes.
type TextToSpeech interface {
	SynthesizeSpeech(ctx context.Context, text string, config VoiceConfig) (<-chan []byte, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// VoiceConfig represents voice configuration for TTS
type VoiceConfig struct {
	VoiceID   string `json:"voice_id"`
	Language  string `json:"language"`
	SpeakRate string `json:"speak_rate"`
}
