package pending

import (
	"sync"

	"github.com/sandevgo/finbot/internal/core"
)

// Store holds at most one staged batch of validated rows per user while the
// user decides whether to record it. A new batch replaces any stale one.
type Store struct {
	mu      sync.Mutex
	batches map[int64][]core.ValidatedRow
}

func New() *Store {
	return &Store{batches: make(map[int64][]core.ValidatedRow)}
}

func (s *Store) Put(userID int64, rows []core.ValidatedRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[userID] = rows
}

// Take removes and returns the staged batch. The batch is consumed whether
// the caller goes on to record it or not.
func (s *Store) Take(userID int64) ([]core.ValidatedRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.batches[userID]
	delete(s.batches, userID)
	return rows, ok
}
