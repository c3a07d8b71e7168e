package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/danuartha/swara/adapters/artifact"
	"github.com/danuartha/swara/adapters/llm"
	"github.com/danuartha/swara/adapters/stt"
	"github.com/danuartha/swara/adapters/tts"
	"github.com/danuartha/swara/internal/auth"
	"github.com/danuartha/swara/internal/relay"
	"github.com/danuartha/swara/repository"
	"github.com/danuartha/swara/usecase"
)

const roomTokenTTL = 6 * time.Hour

// The relay agent joins a media-relay room as a participant, listens to
// subscribed audio, and speaks replies back into the room.
func main() {
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	serverURL := os.Getenv("RELAY_URL")
	room := os.Getenv("RELAY_ROOM")
	if serverURL == "" || room == "" {
		logger.Fatal("RELAY_URL and RELAY_ROOM are required")
	}

	identity := os.Getenv("RELAY_IDENTITY")
	if identity == "" {
		identity = "swara-agent"
	}

	signer, err := auth.NewSigner(envOr("API_KEY", "devkey"), envOr("API_SECRET", "devsecret"))
	if err != nil {
		logger.Fatal("Failed to initialize token signer", zap.Error(err))
	}

	token, err := signer.RoomToken(auth.RoomGrant{
		Room:     room,
		Identity: identity,
		Name:     "Swara Assistant",
	}, roomTokenTTL)
	if err != nil {
		logger.Fatal("Failed to mint room token", zap.Error(err))
	}

	artifacts := artifact.NewMemoryStore(10*time.Minute, logger)
	defer artifacts.Close()

	orchestrator := usecase.NewOrchestrator(
		buildSpeechToText(logger),
		buildLanguageModel(logger),
		buildTextToSpeech(logger),
		artifacts,
		nil,
		usecase.OrchestratorConfig{},
		logger,
	)

	agent := relay.NewAgent(orchestrator, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Agent is shutting down...")
		cancel()
	}()

	// Reconnect with backoff until the context is cancelled.
	backoff := time.Second
	for {
		logger.Info("Joining relay room",
			zap.String("url", serverURL),
			zap.String("room", room),
			zap.String("identity", identity))

		err := agent.Run(ctx, serverURL, token)
		if errors.Is(err, context.Canceled) {
			break
		}
		logger.Warn("Relay session ended, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		if ctx.Err() != nil {
			break
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}

	logger.Info("Agent exited")
}

func buildSpeechToText(logger *zap.Logger) repository.SpeechToText {
	switch os.Getenv("STT_PROVIDER") {
	case "google":
		return &stt.GoogleSpeechToText{}
	case "whisper":
		service, err := stt.NewWhisperSpeechToText(os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			logger.Fatal("Failed to initialize Whisper", zap.Error(err))
		}
		return service
	default:
		return stt.NewMockSpeechToText(logger)
	}
}

func buildLanguageModel(logger *zap.Logger) repository.LargeLanguageModel {
	switch os.Getenv("LLM_PROVIDER") {
	case "gemini":
		service, err := llm.NewGeminiLLM(llm.GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini", zap.Error(err))
		}
		return service
	case "openai":
		service, err := llm.NewOpenAILLM(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
		if err != nil {
			logger.Fatal("Failed to initialize OpenAI chat", zap.Error(err))
		}
		return service
	default:
		return llm.NewMockLLM()
	}
}

func buildTextToSpeech(logger *zap.Logger) repository.TextToSpeech {
	switch os.Getenv("TTS_PROVIDER") {
	case "elevenlabs":
		service, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:  os.Getenv("ELEVEN_LABS_API_KEY"),
			VoiceID: os.Getenv("ELEVEN_LABS_VOICE_ID"),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Eleven Labs", zap.Error(err))
		}
		return service
	case "openai":
		service, err := tts.NewOpenAITTS(os.Getenv("OPENAI_API_KEY"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize OpenAI speech", zap.Error(err))
		}
		return service
	default:
		return tts.NewMockTextToSpeech(logger)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
