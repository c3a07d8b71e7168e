package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danuartha/swara/repository"
)

// TranscriptRepository persists completed conversation exchanges.
type TranscriptRepository struct {
	collection *mongo.Collection
}

// NewTranscriptRepository creates a new MongoDB transcript repository
func NewTranscriptRepository(db *mongo.Database) repository.TranscriptRepository {
	return &TranscriptRepository{
		collection: db.Collection("exchanges"),
	}
}

// Create implements repository.TranscriptRepository
func (r *TranscriptRepository) Create(ctx context.Context, exchange *repository.Exchange) error {
	if exchange == nil {
		return errors.New("exchange cannot be nil")
	}
	if exchange.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now()
	}

	doc := bson.M{
		"session_id":  exchange.SessionID,
		"transcript":  exchange.Transcript,
		"reply":       exchange.Reply,
		"artifact_id": exchange.ArtifactID,
		"duration_ms": exchange.Duration.Milliseconds(),
		"created_at":  exchange.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create exchange: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		exchange.ID = oid.Hex()
	}
	return nil
}

// GetBySessionID implements repository.TranscriptRepository
func (r *TranscriptRepository) GetBySessionID(ctx context.Context, sessionID string, limit int) ([]*repository.Exchange, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var exchanges []*repository.Exchange
	for cursor.Next(ctx) {
		var doc struct {
			ID         primitive.ObjectID `bson:"_id"`
			SessionID  string             `bson:"session_id"`
			Transcript string             `bson:"transcript"`
			Reply      string             `bson:"reply"`
			ArtifactID string             `bson:"artifact_id"`
			DurationMs int64              `bson:"duration_ms"`
			CreatedAt  time.Time          `bson:"created_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode exchange: %w", err)
		}
		exchanges = append(exchanges, &repository.Exchange{
			ID:         doc.ID.Hex(),
			SessionID:  doc.SessionID,
			Transcript: doc.Transcript,
			Reply:      doc.Reply,
			ArtifactID: doc.ArtifactID,
			Duration:   time.Duration(doc.DurationMs) * time.Millisecond,
			CreatedAt:  doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error reading exchanges: %w", err)
	}
	return exchanges, nil
}
