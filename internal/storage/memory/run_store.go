package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// RunStore tracks pipeline runs in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]catalog.Run
	now  func() time.Time
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]catalog.Run),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateRun stores a new run.
func (s *RunStore) CreateRun(_ context.Context, run catalog.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s: %w", run.ID, catalog.ErrConflict)
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRunStatus moves a run to status, stamping start and finish times.
func (s *RunStore) UpdateRunStatus(
	_ context.Context,
	runID string,
	status catalog.RunStatus,
	result *catalog.PipelineResult,
	errText string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, catalog.ErrNotFound)
	}
	run.Status = status
	run.ErrorText = errText
	if result != nil {
		r := *result
		run.Result = &r
	}
	now := s.now()
	if status == catalog.RunStatusRunning && run.Started == nil {
		run.Started = &now
	}
	if status.Terminal() {
		run.Finished = &now
	}
	s.runs[runID] = run
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (catalog.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return catalog.Run{}, fmt.Errorf("run %s: %w", runID, catalog.ErrNotFound)
	}
	return run, nil
}
