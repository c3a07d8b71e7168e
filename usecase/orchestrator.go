package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/danuartha/swara/domain"
	"github.com/danuartha/swara/repository"
)

const (
	defaultMaxWorkers   = 8
	defaultMaxTokens    = 150
	defaultSystemPrompt = "You are a helpful voice assistant. Keep responses concise and natural."
)

// ErrSessionBusy is returned when a pipeline request is submitted for a
// session that already has one in flight.
var ErrSessionBusy = errors.New("session already has a request in flight")

// OrchestratorConfig holds tunables for the pipeline orchestrator.
// Zero values fall back to defaults.
type OrchestratorConfig struct {
	MaxWorkers   int
	MaxTokens    int
	SystemPrompt string
	Audio        repository.AudioConfig
	Voice        repository.VoiceConfig
}

// Orchestrator drives one utterance through transcription, reply generation
// and speech synthesis, enforcing at most one in-flight request per session.
// Concurrency across sessions is bounded by a weighted semaphore so a burst
// of utterances cannot exhaust backend quotas.
type Orchestrator struct {
	speechToText repository.SpeechToText
	llm          repository.LargeLanguageModel
	textToSpeech repository.TextToSpeech
	artifacts    repository.ArtifactStore
	transcripts  repository.TranscriptRepository // optional, may be nil

	workers *semaphore.Weighted
	cfg     OrchestratorConfig
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*domain.SessionState
}

// NewOrchestrator creates a pipeline orchestrator. transcripts may be nil to
// disable conversation history persistence.
func NewOrchestrator(
	stt repository.SpeechToText,
	llm repository.LargeLanguageModel,
	tts repository.TextToSpeech,
	artifacts repository.ArtifactStore,
	transcripts repository.TranscriptRepository,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio = repository.AudioConfig{
			SampleRate: 48000,
			Encoding:   "LINEAR16",
			Language:   "en-US",
		}
	}
	return &Orchestrator{
		speechToText: stt,
		llm:          llm,
		textToSpeech: tts,
		artifacts:    artifacts,
		transcripts:  transcripts,
		workers:      semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		cfg:          cfg,
		logger:       logger,
		sessions:     make(map[string]*domain.SessionState),
	}
}

// Busy implements BusyChecker for the utterance buffer.
func (o *Orchestrator) Busy(sessionID string) bool {
	return o.session(sessionID).Busy()
}

// SubmitAudio runs the pipeline for a single batch audio upload.
func (o *Orchestrator) SubmitAudio(ctx context.Context, sessionID string, audio []byte) (*domain.PipelineRequest, error) {
	return o.Process(ctx, &domain.Utterance{
		SessionID: sessionID,
		Frames:    []domain.AudioFrame{{Data: audio}},
	})
}

// Process drives the utterance through the three pipeline stages in strict
// order. The returned request always records the outcome: stage failures are
// reported through its Status and Reason rather than an error. The only
// error condition is admission: a session with a request already in flight
// is rejected with ErrSessionBusy.
//
// Partial results survive later failures. A synthesis fault still yields a
// request carrying the transcript and reply text.
func (o *Orchestrator) Process(ctx context.Context, utterance *domain.Utterance) (*domain.PipelineRequest, error) {
	state := o.session(utterance.SessionID)
	if !state.TryAcquire() {
		return nil, ErrSessionBusy
	}
	defer state.Release()

	req := domain.NewPipelineRequest(utterance.SessionID, utterance.PCM())

	if err := o.workers.Acquire(ctx, 1); err != nil {
		req.Fail(domain.ReasonCancelled, err)
		return req, nil
	}
	defer o.workers.Release(1)

	o.runStages(ctx, req)

	o.logger.Info("Pipeline request finished",
		zap.String("requestID", req.ID),
		zap.String("sessionID", req.SessionID),
		zap.String("status", string(req.Status)),
		zap.String("reason", string(req.Reason)),
		zap.Duration("duration", req.Duration()))

	if req.Status == domain.StatusSucceeded && o.transcripts != nil {
		o.recordExchange(req)
	}
	return req, nil
}

// FetchArtifact returns previously synthesized audio by its identifier.
func (o *Orchestrator) FetchArtifact(ctx context.Context, id string) ([]byte, error) {
	return o.artifacts.Get(ctx, id)
}

func (o *Orchestrator) runStages(ctx context.Context, req *domain.PipelineRequest) {
	// Step 1: speech to text.
	transcript, err := o.speechToText.TranscribeAudio(ctx, req.InputAudio, o.cfg.Audio)
	if err != nil {
		req.Fail(o.reasonFor(ctx, domain.ReasonTranscriptionError), fmt.Errorf("transcription failed: %w", err))
		return
	}
	req.Transcript = transcript

	if strings.TrimSpace(transcript) == "" {
		// Nothing worth responding to; skip generation and synthesis.
		req.Fail(domain.ReasonEmptyTranscript, nil)
		return
	}

	// Step 2: reply generation.
	reply, err := o.llm.Generate(ctx, transcript, o.cfg.SystemPrompt, o.cfg.MaxTokens)
	if err != nil {
		req.Fail(o.reasonFor(ctx, domain.ReasonGenerationError), fmt.Errorf("generation failed: %w", err))
		return
	}
	req.Reply = reply

	// Step 3: speech synthesis. Audio arrives as a stream of chunks.
	chunks, err := o.textToSpeech.SynthesizeSpeech(ctx, reply, o.cfg.Voice)
	if err != nil {
		req.Fail(o.reasonFor(ctx, domain.ReasonSynthesisError), fmt.Errorf("text-to-speech failed: %w", err))
		return
	}

	var audio bytes.Buffer
	for chunk := range chunks {
		audio.Write(chunk)
	}
	if ctx.Err() != nil {
		req.Fail(domain.ReasonCancelled, ctx.Err())
		return
	}
	if audio.Len() == 0 {
		req.Fail(domain.ReasonSynthesisError, errors.New("synthesis produced no audio"))
		return
	}
	req.OutAudio = audio.Bytes()

	artifactID, err := o.artifacts.Put(ctx, req.OutAudio)
	if err != nil {
		req.Fail(domain.ReasonSynthesisError, fmt.Errorf("store synthesized audio: %w", err))
		return
	}
	req.ArtifactID = artifactID
	req.Succeed()
}

// reasonFor maps a stage failure to Cancelled when the context was the cause.
func (o *Orchestrator) reasonFor(ctx context.Context, stage domain.FailureReason) domain.FailureReason {
	if ctx.Err() != nil {
		return domain.ReasonCancelled
	}
	return stage
}

func (o *Orchestrator) session(sessionID string) *domain.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.sessions[sessionID]
	if !ok {
		state = &domain.SessionState{}
		o.sessions[sessionID] = state
	}
	return state
}

func (o *Orchestrator) recordExchange(req *domain.PipelineRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exchange := &repository.Exchange{
		SessionID:  req.SessionID,
		Transcript: req.Transcript,
		Reply:      req.Reply,
		ArtifactID: req.ArtifactID,
		Duration:   req.Duration(),
		CreatedAt:  req.StartedAt,
	}
	if err := o.transcripts.Create(ctx, exchange); err != nil {
		o.logger.Error("Failed to persist exchange",
			zap.String("sessionID", req.SessionID),
			zap.Error(err))
	}
}
