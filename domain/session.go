package domain

import "sync"

// SessionState holds the single-flight flag for one audio source. At most one
// pipeline request may be in flight per session; the flag is acquired before
// processing starts and released on every exit path.
type SessionState struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire attempts to mark the session busy. It returns false when a
// request is already in flight.
func (s *SessionState) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release clears the busy flag. Releasing an idle session is a no-op.
func (s *SessionState) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Busy reports whether a pipeline request is currently in flight.
func (s *SessionState) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
