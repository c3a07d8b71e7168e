package usecase

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danuartha/swara/adapters/artifact"
	"github.com/danuartha/swara/domain"
	"github.com/danuartha/swara/repository"
)

type sttStub struct {
	transcript string
	err        error
	delay      time.Duration
}

func (s *sttStub) TranscribeAudio(ctx context.Context, audioData []byte, config repository.AudioConfig) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.transcript, s.err
}

type llmStub struct {
	reply string
	err   error

	mu    sync.Mutex
	calls int
}

func (l *llmStub) Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.reply, l.err
}

func (l *llmStub) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type ttsStub struct {
	chunks [][]byte
	err    error
}

func (t *ttsStub) SynthesizeSpeech(ctx context.Context, text string, config repository.VoiceConfig) (<-chan []byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	out := make(chan []byte, len(t.chunks))
	for _, chunk := range t.chunks {
		out <- chunk
	}
	close(out)
	return out, nil
}

func newTestOrchestrator(t *testing.T, stt repository.SpeechToText, llm repository.LargeLanguageModel, tts repository.TextToSpeech) (*Orchestrator, *artifact.MemoryStore) {
	t.Helper()
	store := artifact.NewMemoryStore(time.Minute, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	o := NewOrchestrator(stt, llm, tts, store, nil, OrchestratorConfig{}, zap.NewNop())
	return o, store
}

func testUtterance(sessionID string) *domain.Utterance {
	return &domain.Utterance{
		SessionID: sessionID,
		Frames:    []domain.AudioFrame{{Data: []byte{1, 2, 3, 4}}},
	}
}

func TestProcessSucceeds(t *testing.T) {
	stt := &sttStub{transcript: "Turn on the lights"}
	llm := &llmStub{reply: "Sure, turning on the lights now."}
	tts := &ttsStub{chunks: [][]byte{{0xAA}, {0xBB}, {0xCC}}}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Status != domain.StatusSucceeded {
		t.Fatalf("Expected succeeded status, got %s (reason %s)", req.Status, req.Reason)
	}

	if req.Transcript != "Turn on the lights" {
		t.Errorf("Expected transcript preserved, got %q", req.Transcript)
	}

	if req.Reply != "Sure, turning on the lights now." {
		t.Errorf("Expected reply preserved, got %q", req.Reply)
	}

	if !bytes.Equal(req.OutAudio, []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Expected synthesized chunks concatenated in order, got %v", req.OutAudio)
	}

	if req.ArtifactID == "" {
		t.Fatal("Expected an artifact ID for synthesized audio")
	}

	stored, err := o.FetchArtifact(context.Background(), req.ArtifactID)
	if err != nil {
		t.Fatalf("Failed to fetch artifact: %v", err)
	}
	if !bytes.Equal(stored, req.OutAudio) {
		t.Error("Stored artifact does not match synthesized audio")
	}
}

func TestProcessEmptyTranscriptSkipsGeneration(t *testing.T) {
	stt := &sttStub{transcript: "   "}
	llm := &llmStub{reply: "should not be called"}
	tts := &ttsStub{chunks: [][]byte{{0x01}}}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Status != domain.StatusFailed {
		t.Fatalf("Expected failed status, got %s", req.Status)
	}

	if req.Reason != domain.ReasonEmptyTranscript {
		t.Errorf("Expected empty_transcript reason, got %s", req.Reason)
	}

	if llm.callCount() != 0 {
		t.Error("Generation must not run for an empty transcript")
	}
}

func TestProcessTranscriptionFailure(t *testing.T) {
	stt := &sttStub{err: errors.New("backend unavailable")}
	o, _ := newTestOrchestrator(t, stt, &llmStub{}, &ttsStub{})

	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Reason != domain.ReasonTranscriptionError {
		t.Errorf("Expected transcription_error reason, got %s", req.Reason)
	}
}

func TestProcessSynthesisFailureKeepsPartialResults(t *testing.T) {
	stt := &sttStub{transcript: "Hello there"}
	llm := &llmStub{reply: "Hi! How can I help?"}
	tts := &ttsStub{err: errors.New("voice backend down")}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Status != domain.StatusFailed {
		t.Fatalf("Expected failed status, got %s", req.Status)
	}

	if req.Reason != domain.ReasonSynthesisError {
		t.Errorf("Expected synthesis_error reason, got %s", req.Reason)
	}

	// Earlier stage results survive the synthesis fault.
	if req.Transcript != "Hello there" {
		t.Errorf("Expected transcript preserved, got %q", req.Transcript)
	}
	if req.Reply != "Hi! How can I help?" {
		t.Errorf("Expected reply preserved, got %q", req.Reply)
	}
}

func TestProcessEmptySynthesisOutputFails(t *testing.T) {
	stt := &sttStub{transcript: "Hello"}
	llm := &llmStub{reply: "Hi"}
	tts := &ttsStub{chunks: nil}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Reason != domain.ReasonSynthesisError {
		t.Errorf("Expected synthesis_error for empty audio, got %s", req.Reason)
	}
}

func TestProcessRejectsConcurrentRequestForSameSession(t *testing.T) {
	stt := &sttStub{transcript: "Tell me a story", delay: 200 * time.Millisecond}
	llm := &llmStub{reply: "Once upon a time..."}
	tts := &ttsStub{chunks: [][]byte{{0x01}}}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	started := make(chan struct{})
	done := make(chan *domain.PipelineRequest, 1)
	go func() {
		close(started)
		req, _ := o.Process(context.Background(), testUtterance("session-1"))
		done <- req
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	if !o.Busy("session-1") {
		t.Fatal("Expected session to report busy while processing")
	}

	_, err := o.Process(context.Background(), testUtterance("session-1"))
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("Expected ErrSessionBusy, got %v", err)
	}

	first := <-done
	if first.Status != domain.StatusSucceeded {
		t.Errorf("Expected first request to succeed, got %s", first.Status)
	}

	if o.Busy("session-1") {
		t.Error("Expected session to be released after processing")
	}

	// The session is free again, a new request is admitted.
	req, err := o.Process(context.Background(), testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Expected session to accept a new request, got %v", err)
	}
	if req.Status != domain.StatusSucceeded {
		t.Errorf("Expected second request to succeed, got %s", req.Status)
	}
}

func TestProcessAllowsConcurrentSessions(t *testing.T) {
	stt := &sttStub{transcript: "Hello", delay: 100 * time.Millisecond}
	llm := &llmStub{reply: "Hi"}
	tts := &ttsStub{chunks: [][]byte{{0x01}}}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	var wg sync.WaitGroup
	results := make(chan *domain.PipelineRequest, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		sessionID := string(rune('a' + i))
		go func() {
			defer wg.Done()
			req, err := o.Process(context.Background(), testUtterance(sessionID))
			if err != nil {
				t.Errorf("Session %s rejected: %v", sessionID, err)
				return
			}
			results <- req
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for req := range results {
		if req.Status != domain.StatusSucceeded {
			t.Errorf("Session %s did not succeed: %s", req.SessionID, req.Status)
		}
		if seen[req.SessionID] {
			t.Errorf("Duplicate result for session %s", req.SessionID)
		}
		seen[req.SessionID] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 distinct sessions to complete, got %d", len(seen))
	}
}

func TestProcessCancelledContext(t *testing.T) {
	stt := &sttStub{transcript: "Hello", delay: time.Second}
	o, _ := newTestOrchestrator(t, stt, &llmStub{reply: "Hi"}, &ttsStub{chunks: [][]byte{{0x01}}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := o.Process(ctx, testUtterance("session-1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if req.Reason != domain.ReasonCancelled {
		t.Errorf("Expected cancelled reason, got %s", req.Reason)
	}
}

func TestSubmitAudio(t *testing.T) {
	stt := &sttStub{transcript: "Hello"}
	llm := &llmStub{reply: "Hi"}
	tts := &ttsStub{chunks: [][]byte{{0x01, 0x02}}}
	o, _ := newTestOrchestrator(t, stt, llm, tts)

	req, err := o.SubmitAudio(context.Background(), "session-1", []byte{9, 9, 9})
	if err != nil {
		t.Fatalf("SubmitAudio returned error: %v", err)
	}

	if req.Status != domain.StatusSucceeded {
		t.Fatalf("Expected succeeded status, got %s", req.Status)
	}

	if !bytes.Equal(req.InputAudio, []byte{9, 9, 9}) {
		t.Errorf("Expected input audio preserved, got %v", req.InputAudio)
	}
}
