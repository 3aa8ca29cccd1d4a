package runner

import (
	"context"
	"sync"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// RunStore tracks submitted runs and their reports in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]auction.RunReport
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]auction.RunReport)}
}

// Create registers a newly submitted run.
func (s *RunStore) Create(_ context.Context, report auction.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[report.RunID] = report
	return nil
}

// Get returns the current report for a run.
func (s *RunStore) Get(_ context.Context, runID string) (auction.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[runID]
	if !ok {
		return auction.RunReport{}, auction.ErrRunNotFound
	}
	return report, nil
}

// SetStatus updates only the status of an existing run.
func (s *RunStore) SetStatus(_ context.Context, runID string, status auction.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.runs[runID]
	if !ok {
		return auction.ErrRunNotFound
	}
	report.Status = status
	s.runs[runID] = report
	return nil
}

// SetReport replaces the stored report for a completed run.
func (s *RunStore) SetReport(_ context.Context, report auction.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[report.RunID]; !ok {
		return auction.ErrRunNotFound
	}
	s.runs[report.RunID] = report
	return nil
}
