package repository

import (
	"context"
	"errors"
)

// ErrArtifactNotFound is returned by Get when the id is unknown or the
// artifact has already been purged.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore holds synthesized audio between production and retrieval.
// Implementations must be safe for concurrent use.
type ArtifactStore interface {
	// Put stores the bytes under a freshly generated opaque identifier and
	// returns it. An existing artifact is never overwritten.
	Put(ctx context.Context, data []byte) (string, error)
	// Get returns the stored bytes or ErrArtifactNotFound.
	Get(ctx context.Context, id string) ([]byte, error)
	// Purge removes the artifact. Purging an unknown or already-purged id is
	// a no-op, not an error.
	Purge(ctx context.Context, id string) error
}
