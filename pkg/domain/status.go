package domain

import (
	"sync"
	"time"
)

// RunStatus is the recorded outcome of the most recent run, exposed via
// the status endpoint in daemon mode.
type RunStatus struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Created  int
	Deleted  int
	Failures int

	Summary string
	Error   string
}

type RunStatusStore struct {
	mu   sync.RWMutex
	last *RunStatus
}

func NewRunStatusStore() *RunStatusStore {
	return &RunStatusStore{}
}

func (s *RunStatusStore) Record(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &status
}

func (s *RunStatusStore) Last() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return RunStatus{}, false
	}

	return *s.last, true
}
