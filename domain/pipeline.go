package domain

import (
	"time"

	"github.com/google/uuid"
)

// PipelineStatus is the terminal status of a pipeline request.
type PipelineStatus string

const (
	StatusPending   PipelineStatus = "pending"
	StatusSucceeded PipelineStatus = "succeeded"
	StatusFailed    PipelineStatus = "failed"
)

// FailureReason identifies which pipeline stage failed.
type FailureReason string

const (
	ReasonEmptyTranscript    FailureReason = "empty_transcript"
	ReasonTranscriptionError FailureReason = "transcription_error"
	ReasonGenerationError    FailureReason = "generation_error"
	ReasonSynthesisError     FailureReason = "synthesis_error"
	ReasonCancelled          FailureReason = "cancelled"
)

// PipelineRequest tracks one transcription-to-speech cycle. It is owned
// exclusively by the orchestrator while in flight; partial results
// (transcript, reply) are preserved even when a later stage fails.
type PipelineRequest struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	InputAudio []byte         `json:"-"`
	Transcript string         `json:"user_text,omitempty"`
	Reply      string         `json:"response_text,omitempty"`
	OutAudio   []byte         `json:"-"`
	ArtifactID string         `json:"audio_id,omitempty"`
	Status     PipelineStatus `json:"status"`
	Reason     FailureReason  `json:"reason,omitempty"`
	Err        string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// NewPipelineRequest creates a pending request for the given session.
func NewPipelineRequest(sessionID string, audio []byte) *PipelineRequest {
	return &PipelineRequest{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		InputAudio: audio,
		Status:     StatusPending,
		StartedAt:  time.Now(),
	}
}

// Fail marks the request as failed with the stage that caused it.
// The wrapped error may be nil for short-circuit failures such as an
// empty transcript.
func (r *PipelineRequest) Fail(reason FailureReason, err error) {
	r.Status = StatusFailed
	r.Reason = reason
	if err != nil {
		r.Err = err.Error()
	}
	r.FinishedAt = time.Now()
}

// Succeed marks the request as completed with all stages populated.
func (r *PipelineRequest) Succeed() {
	r.Status = StatusSucceeded
	r.FinishedAt = time.Now()
}

// Duration returns the wall-clock time the request spent in the pipeline.
func (r *PipelineRequest) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
