package usecase

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danuartha/swara/domain"
)

// stubGate is a BusyChecker whose answer the test controls directly.
type stubGate struct {
	busy bool
}

func (s *stubGate) Busy(sessionID string) bool {
	return s.busy
}

func frameWithTag(tag byte) domain.AudioFrame {
	return domain.AudioFrame{
		SampleRate: 48000,
		Channels:   1,
		BitDepth:   16,
		Data:       []byte{tag, 0},
	}
}

func waitForUtterance(t *testing.T, ch chan *domain.Utterance) *domain.Utterance {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("Expected an utterance to be dispatched")
		return nil
	}
}

func expectNoUtterance(t *testing.T, ch chan *domain.Utterance) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("Did not expect an utterance to be dispatched")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAcceptBelowThresholdDoesNotFlush(t *testing.T) {
	gate := &stubGate{}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop())

	for i := 0; i < defaultFlushThreshold-1; i++ {
		buffer.Accept(frameWithTag(byte(i)), "session-1")
	}

	expectNoUtterance(t, emitted)

	if got := buffer.PendingFrames("session-1"); got != defaultFlushThreshold-1 {
		t.Errorf("Expected %d pending frames, got %d", defaultFlushThreshold-1, got)
	}
}

func TestAcceptFlushesAtThreshold(t *testing.T) {
	gate := &stubGate{}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop())

	for i := 0; i < defaultFlushThreshold; i++ {
		buffer.Accept(frameWithTag(byte(i)), "session-1")
	}

	utterance := waitForUtterance(t, emitted)

	if utterance.SessionID != "session-1" {
		t.Errorf("Expected session-1, got %s", utterance.SessionID)
	}

	if len(utterance.Frames) != defaultFlushThreshold {
		t.Errorf("Expected %d frames, got %d", defaultFlushThreshold, len(utterance.Frames))
	}

	// Frames must arrive in arrival order.
	for i, frame := range utterance.Frames {
		if frame.Data[0] != byte(i) {
			t.Errorf("Frame %d out of order: got tag %d", i, frame.Data[0])
			break
		}
	}

	if got := buffer.PendingFrames("session-1"); got != 0 {
		t.Errorf("Expected empty buffer after flush, got %d pending frames", got)
	}
}

func TestBusySessionKeepsAccumulating(t *testing.T) {
	gate := &stubGate{busy: true}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop(),
		WithFlushThreshold(5))

	for i := 0; i < 8; i++ {
		buffer.Accept(frameWithTag(byte(i)), "session-1")
	}

	expectNoUtterance(t, emitted)

	if got := buffer.PendingFrames("session-1"); got != 8 {
		t.Errorf("Expected 8 pending frames while busy, got %d", got)
	}

	// Once the session is idle, the next frame triggers the flush and the
	// backlog is delivered as one utterance.
	gate.busy = false
	buffer.Accept(frameWithTag(8), "session-1")

	utterance := waitForUtterance(t, emitted)
	if len(utterance.Frames) != 9 {
		t.Errorf("Expected 9 frames in flushed backlog, got %d", len(utterance.Frames))
	}
}

func TestBacklogDropsOldestFrames(t *testing.T) {
	gate := &stubGate{busy: true}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop(),
		WithFlushThreshold(5), WithMaxPending(10))

	for i := 0; i < 15; i++ {
		buffer.Accept(frameWithTag(byte(i)), "session-1")
	}

	if got := buffer.PendingFrames("session-1"); got != 10 {
		t.Errorf("Expected backlog capped at 10 frames, got %d", got)
	}

	if got := buffer.DroppedFrames("session-1"); got != 5 {
		t.Errorf("Expected 5 dropped frames, got %d", got)
	}

	gate.busy = false
	if !buffer.Flush("session-1") {
		t.Fatal("Expected flush to dispatch the capped backlog")
	}

	utterance := waitForUtterance(t, emitted)

	// The oldest frames were dropped, so the first surviving frame is tag 5.
	if utterance.Frames[0].Data[0] != 5 {
		t.Errorf("Expected first surviving frame tag 5, got %d", utterance.Frames[0].Data[0])
	}
}

func TestFlushBelowThreshold(t *testing.T) {
	gate := &stubGate{}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop())

	buffer.Accept(frameWithTag(0), "session-1")
	buffer.Accept(frameWithTag(1), "session-1")

	if !buffer.Flush("session-1") {
		t.Fatal("Expected flush of a non-empty backlog to succeed")
	}

	utterance := waitForUtterance(t, emitted)
	if len(utterance.Frames) != 2 {
		t.Errorf("Expected 2 frames, got %d", len(utterance.Frames))
	}

	// Nothing left to flush.
	if buffer.Flush("session-1") {
		t.Error("Expected flush of an empty backlog to report false")
	}
}

func TestFlushWhileBusy(t *testing.T) {
	gate := &stubGate{busy: true}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop())

	buffer.Accept(frameWithTag(0), "session-1")

	if buffer.Flush("session-1") {
		t.Error("Expected flush to be refused while the session is busy")
	}

	if got := buffer.PendingFrames("session-1"); got != 1 {
		t.Errorf("Expected the frame to remain buffered, got %d pending", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	gate := &stubGate{}
	emitted := make(chan *domain.Utterance, 2)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop(),
		WithFlushThreshold(3))

	buffer.Accept(frameWithTag(0), "session-a")
	buffer.Accept(frameWithTag(1), "session-a")
	buffer.Accept(frameWithTag(0), "session-b")

	expectNoUtterance(t, emitted)

	buffer.Accept(frameWithTag(2), "session-a")

	utterance := waitForUtterance(t, emitted)
	if utterance.SessionID != "session-a" {
		t.Errorf("Expected session-a to flush, got %s", utterance.SessionID)
	}

	if got := buffer.PendingFrames("session-b"); got != 1 {
		t.Errorf("Expected session-b backlog untouched, got %d pending", got)
	}
}

func TestReset(t *testing.T) {
	gate := &stubGate{}
	emitted := make(chan *domain.Utterance, 1)
	buffer := NewUtteranceBuffer(gate, func(u *domain.Utterance) { emitted <- u }, zap.NewNop())

	buffer.Accept(frameWithTag(0), "session-1")
	buffer.Reset("session-1")

	if got := buffer.PendingFrames("session-1"); got != 0 {
		t.Errorf("Expected empty backlog after reset, got %d", got)
	}

	if buffer.Flush("session-1") {
		t.Error("Expected nothing to flush after reset")
	}
}
