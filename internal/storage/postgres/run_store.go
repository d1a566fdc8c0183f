package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// RunStore records pipeline runs in the scrape_runs table.
type RunStore struct {
	db DB
}

// NewRunStore constructs a RunStore over db.
func NewRunStore(db DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &RunStore{db: db}, nil
}

// CreateRun inserts a run row.
func (s *RunStore) CreateRun(ctx context.Context, run catalog.Run) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO scrape_runs (id, status, mode, submitted_at, error_text)
VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Status), string(run.Mode), run.Submitted, run.ErrorText)
	if isUniqueViolation(err) {
		return fmt.Errorf("run %s: %w", run.ID, catalog.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRunStatus moves a run to status. Start and finish times are stamped
// by the database clock.
func (s *RunStore) UpdateRunStatus(
	ctx context.Context,
	runID string,
	status catalog.RunStatus,
	result *catalog.PipelineResult,
	errText string,
) error {
	var created, updated, total *int
	if result != nil {
		created, updated, total = &result.Created, &result.Updated, &result.Total
	}
	tag, err := s.db.Exec(ctx, `
UPDATE scrape_runs
SET status = $2,
	error_text = $3,
	started_at = CASE WHEN $4 AND started_at IS NULL THEN now() ELSE started_at END,
	finished_at = CASE WHEN $5 THEN now() ELSE finished_at END,
	created = COALESCE($6, created),
	updated = COALESCE($7, updated),
	total = COALESCE($8, total)
WHERE id = $1`,
		runID,
		string(status),
		errText,
		status == catalog.RunStatusRunning,
		status.Terminal(),
		created,
		updated,
		total,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, catalog.ErrNotFound)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *RunStore) GetRun(ctx context.Context, runID string) (catalog.Run, error) {
	var (
		run                     catalog.Run
		status, mode            string
		created, updated, total *int
	)
	err := s.db.QueryRow(ctx, `
SELECT id, status, mode, submitted_at, started_at, finished_at, created, updated, total, error_text
FROM scrape_runs WHERE id = $1`, runID).Scan(
		&run.ID, &status, &mode, &run.Submitted, &run.Started, &run.Finished,
		&created, &updated, &total, &run.ErrorText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Run{}, fmt.Errorf("run %s: %w", runID, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	run.Status = catalog.RunStatus(status)
	run.Mode = catalog.RunMode(mode)
	if total != nil {
		run.Result = &catalog.PipelineResult{Total: *total}
		if created != nil {
			run.Result.Created = *created
		}
		if updated != nil {
			run.Result.Updated = *updated
		}
	}
	return run, nil
}
