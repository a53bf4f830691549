package memory

import (
	"context"
	"fmt"
	"sync"

	"live-quiz-service/internal/domain"
)

// ResultsStore keeps finalized game results in memory. It backs tests and
// the no-database demo mode; production deployments use the Postgres
// store.
type ResultsStore struct {
	mu   sync.RWMutex
	byID map[string]domain.GameResults
}

func NewResultsStore() *ResultsStore {
	return &ResultsStore{byID: make(map[string]domain.GameResults)}
}

// SaveResults stores one aggregate. Results are written exactly once per
// game; a second write with the same id indicates a finalizer bug.
func (s *ResultsStore) SaveResults(_ context.Context, results domain.GameResults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[results.ID]; exists {
		return fmt.Errorf("results %s already written", results.ID)
	}
	s.byID[results.ID] = results
	return nil
}

// Get returns a stored aggregate by id.
func (s *ResultsStore) Get(id string) (domain.GameResults, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.byID[id]
	return results, ok
}

// Len reports how many aggregates have been written.
func (s *ResultsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
