package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/pubflow/pkg/domain"
)

// Store implements ports.ReportStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.ExecutionReport
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.ExecutionReport),
	}
}

// Save keeps a copy of the report.
func (s *Store) Save(ctx context.Context, report *domain.ExecutionReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report ID cannot be empty")
	}
	copied := report.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[report.ID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate stored reports.
func (s *Store) Load(ctx context.Context, runID string) (*domain.ExecutionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return report.Clone(), nil
}

// Delete removes the report.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns the stored run IDs, newest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	reports := make([]*domain.ExecutionReport, 0, len(s.data))
	for _, r := range s.data {
		reports = append(reports, r)
	}
	s.mu.RUnlock()

	domain.SortNewestFirst(reports)
	ids := make([]string, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}
	return ids, nil
}
