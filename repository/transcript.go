package repository

import (
	"context"
	"time"
)

// Exchange records one completed conversation turn: what the user said, what
// the assistant replied, and where the synthesized audio can be fetched.
type Exchange struct {
	ID         string        `json:"id" bson:"_id,omitempty"`
	SessionID  string        `json:"session_id" bson:"session_id"`
	Transcript string        `json:"transcript" bson:"transcript"`
	Reply      string        `json:"reply" bson:"reply"`
	ArtifactID string        `json:"artifact_id,omitempty" bson:"artifact_id,omitempty"`
	Duration   time.Duration `json:"duration_ms" bson:"duration_ms"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
}

// TranscriptRepository defines data access methods for conversation history
type TranscriptRepository interface {
	Create(ctx context.Context, exchange *Exchange) error
	GetBySessionID(ctx context.Context, sessionID string, limit int) ([]*Exchange, error)
}
