package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewPipelineRequest(t *testing.T) {
	audio := []byte{1, 2, 3}
	req := NewPipelineRequest("session-1", audio)

	if req.ID == "" {
		t.Error("Expected a generated request ID")
	}
	if req.SessionID != "session-1" {
		t.Errorf("Expected session-1, got %s", req.SessionID)
	}
	if req.Status != StatusPending {
		t.Errorf("Expected pending status, got %s", req.Status)
	}
	if req.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set")
	}

	other := NewPipelineRequest("session-1", audio)
	if other.ID == req.ID {
		t.Error("Expected distinct request IDs")
	}
}

func TestPipelineRequestFail(t *testing.T) {
	req := NewPipelineRequest("session-1", nil)
	req.Transcript = "hello"

	req.Fail(ReasonGenerationError, errors.New("model timeout"))

	if req.Status != StatusFailed {
		t.Errorf("Expected failed status, got %s", req.Status)
	}
	if req.Reason != ReasonGenerationError {
		t.Errorf("Expected generation_error, got %s", req.Reason)
	}
	if req.Err != "model timeout" {
		t.Errorf("Expected error text preserved, got %q", req.Err)
	}
	if req.FinishedAt.IsZero() {
		t.Error("Expected FinishedAt to be set")
	}

	// Partial results stay on the request.
	if req.Transcript != "hello" {
		t.Errorf("Expected transcript preserved, got %q", req.Transcript)
	}
}

func TestPipelineRequestFailWithoutError(t *testing.T) {
	req := NewPipelineRequest("session-1", nil)
	req.Fail(ReasonEmptyTranscript, nil)

	if req.Reason != ReasonEmptyTranscript {
		t.Errorf("Expected empty_transcript, got %s", req.Reason)
	}
	if req.Err != "" {
		t.Errorf("Expected no error text, got %q", req.Err)
	}
}

func TestPipelineRequestSucceed(t *testing.T) {
	req := NewPipelineRequest("session-1", nil)
	req.Succeed()

	if req.Status != StatusSucceeded {
		t.Errorf("Expected succeeded status, got %s", req.Status)
	}
	if req.FinishedAt.IsZero() {
		t.Error("Expected FinishedAt to be set")
	}
	if req.Duration() < 0 {
		t.Error("Expected non-negative duration")
	}
}

func TestPipelineRequestDurationInFlight(t *testing.T) {
	req := NewPipelineRequest("session-1", nil)
	time.Sleep(5 * time.Millisecond)

	if req.Duration() <= 0 {
		t.Error("Expected in-flight duration to be positive")
	}
}

func TestSessionStateSingleFlight(t *testing.T) {
	var state SessionState

	if state.Busy() {
		t.Error("Fresh session should be idle")
	}

	if !state.TryAcquire() {
		t.Fatal("Expected first acquire to succeed")
	}
	if !state.Busy() {
		t.Error("Session should report busy after acquire")
	}
	if state.TryAcquire() {
		t.Error("Expected second acquire to fail while busy")
	}

	state.Release()
	if state.Busy() {
		t.Error("Session should be idle after release")
	}
	if !state.TryAcquire() {
		t.Error("Expected acquire to succeed after release")
	}
}

func TestSessionStateReleaseIdle(t *testing.T) {
	var state SessionState
	state.Release()

	if !state.TryAcquire() {
		t.Error("Release on an idle session must not corrupt state")
	}
}
