package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danuartha/swara/repository"
)

const defaultTTL = 10 * time.Minute

// MemoryStore is an in-memory artifact store with TTL-based eviction. A
// janitor goroutine removes artifacts older than the configured TTL so
// unclaimed audio does not accumulate for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]record

	ttl    time.Duration
	stop   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

type record struct {
	data      []byte
	createdAt time.Time
}

// Ensure MemoryStore implements the ArtifactStore interface
var _ repository.ArtifactStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose artifacts expire after ttl. A
// non-positive ttl selects the default of 10 minutes.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s := &MemoryStore{
		records: make(map[string]record),
		ttl:     ttl,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go s.janitor()
	return s
}

// Put stores data under a fresh identifier.
func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	id := uuid.NewString()

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.records[id] = record{data: stored, createdAt: time.Now()}
	s.mu.Unlock()

	s.logger.Debug("Artifact stored",
		zap.String("artifactID", id),
		zap.Int("size", len(data)))
	return id, nil
}

// Get returns the stored bytes or repository.ErrArtifactNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrArtifactNotFound
	}
	return rec.data, nil
}

// Purge removes the artifact. Unknown ids are a no-op.
func (s *MemoryStore) Purge(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored artifacts. Intended for tests and
// monitoring.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close stops the eviction janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	evicted := 0
	for id, rec := range s.records {
		if rec.createdAt.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("Evicted expired artifacts", zap.Int("count", evicted))
	}
}
