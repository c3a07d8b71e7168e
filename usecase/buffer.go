package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/danuartha/swara/domain"
)

const (
	// defaultFlushThreshold approximates one second of audio at the relay's
	// frame rate.
	defaultFlushThreshold = 50

	// defaultMaxPending caps per-session backlog while the session is busy.
	// Oldest frames are dropped once the cap is exceeded.
	defaultMaxPending = 500
)

// BusyChecker reports whether a session has a pipeline request in flight.
// The orchestrator implements it.
type BusyChecker interface {
	Busy(sessionID string) bool
}

// UtteranceBuffer converts a continuous stream of audio frames into bounded
// utterances. Frames accumulate per session; once the flush threshold is
// reached and the session is idle, the pending frames are assembled into an
// utterance and handed to the registered callback on a separate goroutine so
// frame reception is never stalled by pipeline latency.
//
// All methods are safe for concurrent use.
type UtteranceBuffer struct {
	mu      sync.Mutex
	pending map[string][]domain.AudioFrame
	samples map[string]int
	dropped map[string]uint64

	threshold  int
	maxPending int
	gate       BusyChecker
	emit       func(*domain.Utterance)
	logger     *zap.Logger
}

// BufferOption configures an UtteranceBuffer during construction.
type BufferOption func(*UtteranceBuffer)

// WithFlushThreshold sets the frame count that triggers a flush. The default
// is 50 frames.
func WithFlushThreshold(n int) BufferOption {
	return func(b *UtteranceBuffer) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithMaxPending sets the maximum frames buffered per session while that
// session is busy. The default is 500 frames.
func WithMaxPending(n int) BufferOption {
	return func(b *UtteranceBuffer) {
		if n > 0 {
			b.maxPending = n
		}
	}
}

// NewUtteranceBuffer creates a buffer that hands flushed utterances to emit.
// gate is consulted on every flush candidate; a busy session keeps
// accumulating until it becomes idle.
func NewUtteranceBuffer(gate BusyChecker, emit func(*domain.Utterance), logger *zap.Logger, opts ...BufferOption) *UtteranceBuffer {
	b := &UtteranceBuffer{
		pending:    make(map[string][]domain.AudioFrame),
		samples:    make(map[string]int),
		dropped:    make(map[string]uint64),
		threshold:  defaultFlushThreshold,
		maxPending: defaultMaxPending,
		gate:       gate,
		emit:       emit,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Accept appends frame to the session's pending sequence. It never blocks;
// when the flush threshold is reached and the session is idle, the assembled
// utterance is dispatched on a new goroutine.
func (b *UtteranceBuffer) Accept(frame domain.AudioFrame, sessionID string) {
	b.mu.Lock()

	frames := append(b.pending[sessionID], frame)
	b.samples[sessionID] += frame.SampleCount()

	// Bound the backlog: a session that keeps talking while its previous
	// utterance is still processing would otherwise grow without limit.
	if len(frames) > b.maxPending {
		over := len(frames) - b.maxPending
		for _, f := range frames[:over] {
			b.samples[sessionID] -= f.SampleCount()
		}
		frames = frames[over:]
		b.dropped[sessionID] += uint64(over)
		b.logger.Warn("Utterance backlog exceeded, dropping oldest frames",
			zap.String("sessionID", sessionID),
			zap.Int("dropped", over),
			zap.Uint64("totalDropped", b.dropped[sessionID]))
	}
	b.pending[sessionID] = frames

	if len(frames) < b.threshold || b.gate.Busy(sessionID) {
		b.mu.Unlock()
		return
	}

	utterance := &domain.Utterance{
		SessionID: sessionID,
		Frames:    frames,
		Samples:   b.samples[sessionID],
	}
	delete(b.pending, sessionID)
	delete(b.samples, sessionID)
	b.mu.Unlock()

	go b.emit(utterance)
}

// Flush dispatches whatever is pending for the session regardless of the
// threshold, e.g. when the speaker explicitly ends their turn. It reports
// whether an utterance was dispatched; a busy session or an empty backlog
// leaves the buffer untouched.
func (b *UtteranceBuffer) Flush(sessionID string) bool {
	b.mu.Lock()
	frames := b.pending[sessionID]
	if len(frames) == 0 || b.gate.Busy(sessionID) {
		b.mu.Unlock()
		return false
	}
	utterance := &domain.Utterance{
		SessionID: sessionID,
		Frames:    frames,
		Samples:   b.samples[sessionID],
	}
	delete(b.pending, sessionID)
	delete(b.samples, sessionID)
	b.mu.Unlock()

	go b.emit(utterance)
	return true
}

// PendingFrames returns the number of frames currently buffered for the
// session. Intended for tests and monitoring.
func (b *UtteranceBuffer) PendingFrames(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[sessionID])
}

// DroppedFrames returns how many frames have been dropped for the session
// due to backlog pressure.
func (b *UtteranceBuffer) DroppedFrames(sessionID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped[sessionID]
}

// Reset discards all pending frames for the session, e.g. when the session
// disconnects.
func (b *UtteranceBuffer) Reset(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, sessionID)
	delete(b.samples, sessionID)
}
