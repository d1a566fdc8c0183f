package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewRunStore(mock)
	require.NoError(t, err)
	ctx := context.Background()
	submitted := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := submitted.Add(time.Minute)
	created, updated, total := 1, 2, 3

	mock.ExpectExec("INSERT INTO scrape_runs").
		WithArgs("run-1", "queued", "background", submitted, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs("run-1", "succeeded", "", false, true, &created, &updated, &total).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM scrape_runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(mock.NewRows([]string{
			"id", "status", "mode", "submitted_at", "started_at", "finished_at",
			"created", "updated", "total", "error_text",
		}).AddRow("run-1", "succeeded", "background", submitted, &submitted, &finished,
			&created, &updated, &total, ""))

	require.NoError(t, store.CreateRun(ctx, catalog.Run{
		ID:        "run-1",
		Status:    catalog.RunStatusQueued,
		Mode:      catalog.RunModeBackground,
		Submitted: submitted,
	}))
	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", catalog.RunStatusSucceeded,
		&catalog.PipelineResult{Created: 1, Updated: 2, Total: 3}, ""))

	run, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, catalog.RunStatusSucceeded, run.Status)
	require.Equal(t, catalog.RunModeBackground, run.Mode)
	require.Equal(t, &catalog.PipelineResult{Created: 1, Updated: 2, Total: 3}, run.Result)
	require.Equal(t, finished, *run.Finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreMissing(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewRunStore(mock)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs("nope", "running", "", true, false, (*int)(nil), (*int)(nil), (*int)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("FROM scrape_runs WHERE id").
		WithArgs("nope").
		WillReturnRows(mock.NewRows([]string{
			"id", "status", "mode", "submitted_at", "started_at", "finished_at",
			"created", "updated", "total", "error_text",
		}))

	err = store.UpdateRunStatus(ctx, "nope", catalog.RunStatusRunning, nil, "")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = store.GetRun(ctx, "nope")
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
