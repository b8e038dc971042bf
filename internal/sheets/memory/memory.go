package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// Store is an in-memory report mirror for tests and ephemeral runs.
type Store struct {
	mu    sync.Mutex
	items []core.MonthlyReport
}

func New() *Store {
	return &Store{}
}

// AppendReport stores the report and returns a synthetic row reference.
func (s *Store) AppendReport(_ context.Context, r core.MonthlyReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []core.MonthlyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MonthlyReport, len(s.items))
	copy(out, s.items)
	return out
}
