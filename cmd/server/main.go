package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/danuartha/swara/adapters/artifact"
	"github.com/danuartha/swara/adapters/llm"
	mongoadapter "github.com/danuartha/swara/adapters/mongo"
	"github.com/danuartha/swara/adapters/stt"
	"github.com/danuartha/swara/adapters/tts"
	"github.com/danuartha/swara/internal/api"
	"github.com/danuartha/swara/internal/auth"
	"github.com/danuartha/swara/internal/gateway"
	"github.com/danuartha/swara/repository"
	"github.com/danuartha/swara/usecase"
)

func main() {
	// Load .env file if present
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize backend adapters from environment
	speechToText := buildSpeechToText(logger)
	languageModel := buildLanguageModel(logger)
	textToSpeech := buildTextToSpeech(logger)

	// Artifact store with TTL eviction
	artifactTTL := 10 * time.Minute
	if minutes, err := strconv.Atoi(os.Getenv("ARTIFACT_TTL_MINUTES")); err == nil && minutes > 0 {
		artifactTTL = time.Duration(minutes) * time.Minute
	}
	artifacts := artifact.NewMemoryStore(artifactTTL, logger)
	defer artifacts.Close()

	// Optional conversation history persistence
	var transcripts repository.TranscriptRepository
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		mongoClient, err := mongoadapter.NewClient(uri, os.Getenv("MONGODB_DATABASE"), logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Close(context.Background())
		transcripts = mongoadapter.NewTranscriptRepository(mongoClient.Database)
	} else {
		logger.Info("MONGODB_URI not set, exchange history disabled")
	}

	// Initialize pipeline orchestrator
	orchestrator := usecase.NewOrchestrator(
		speechToText,
		languageModel,
		textToSpeech,
		artifacts,
		transcripts,
		usecase.OrchestratorConfig{},
		logger,
	)

	// Token signer for device sessions and relay rooms
	signer, err := auth.NewSigner(envOr("API_KEY", "devkey"), envOr("API_SECRET", "devsecret"))
	if err != nil {
		logger.Fatal("Failed to initialize token signer", zap.Error(err))
	}

	// Initialize WebSocket hub with the pipeline orchestrator
	hub := gateway.NewHub(orchestrator, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, orchestrator, artifacts, transcripts, signer, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
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
		logger.Info("Using mock speech-to-text")
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
		logger.Info("Using mock language model")
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
		logger.Info("Using mock text-to-speech")
		return tts.NewMockTextToSpeech(logger)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
