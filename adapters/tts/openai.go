package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/danuartha/swara/repository"
)

const defaultOpenAIVoice = openai.AudioSpeechNewParamsVoiceAlloy

// OpenAITTS implements TextToSpeech using the OpenAI speech API.
type OpenAITTS struct {
	client    openai.Client
	model     openai.SpeechModel
	chunkSize int
	logger    *zap.Logger
}

// Ensure OpenAITTS implements the TextToSpeech interface
var _ repository.TextToSpeech = (*OpenAITTS)(nil)

// NewOpenAITTS creates a new OpenAI-backed synthesizer.
func NewOpenAITTS(apiKey string, logger *zap.Logger) (*OpenAITTS, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &OpenAITTS{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     openai.SpeechModelTTS1,
		chunkSize: defaultChunkSize,
		logger:    logger,
	}, nil
}

// SynthesizeSpeech converts text to speech. The response body is streamed
// to the returned channel in fixed-size chunks.
func (o *OpenAITTS) SynthesizeSpeech(ctx context.Context, text string, config repository.VoiceConfig) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := openai.AudioSpeechNewParamsVoice(config.VoiceID)
	if config.VoiceID == "" {
		voice = defaultOpenAIVoice
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: o.model,
		Voice: voice,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	audioChan := make(chan []byte, 10)
	go func() {
		defer close(audioChan)
		defer resp.Body.Close()

		buffer := make([]byte, o.chunkSize)
		for {
			n, err := resp.Body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])

				select {
				case audioChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				o.logger.Error("Error reading speech response", zap.Error(err))
				return
			}
		}
	}()

	return audioChan, nil
}
