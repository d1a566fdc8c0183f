// Package worker executes queued background pipeline runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// RunTimeout bounds a single pipeline run; zero means no bound.
	RunTimeout time.Duration
}

// Worker consumes queue items and runs the pipeline for each.
type Worker struct {
	queue  catalog.Queue
	runs   catalog.RunStore
	runner catalog.Runner
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(
	queue catalog.Queue,
	runs catalog.RunStore,
	runner catalog.Runner,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		queue:  queue,
		runs:   runs,
		runner: runner,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, catalog.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued run", logging.RunID(item.RunID))
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item catalog.QueueItem) {
	logger := w.logger.With(logging.RunID(item.RunID))
	// Status writes outlive shutdown so an interrupted run still ends as failed.
	statusCtx := context.WithoutCancel(ctx)

	if w.runner == nil {
		w.finish(statusCtx, logger, item.RunID, catalog.RunStatusFailed, nil, "no pipeline configured")
		return
	}
	if err := w.runs.UpdateRunStatus(statusCtx, item.RunID, catalog.RunStatusRunning, nil, ""); err != nil {
		logger.Error("update run status failed", zap.Error(err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	runCtx, cancel := w.runContext(ctx)
	defer cancel()

	started := time.Now()
	result, err := w.runner.Run(runCtx)
	if err != nil {
		logger.Warn("background run failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		w.finish(statusCtx, logger, item.RunID, catalog.RunStatusFailed, nil, describe(err, runCtx))
		return
	}
	logger.Info("background run finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("total", result.Total),
		zap.Duration("elapsed", time.Since(started)),
	)
	w.finish(statusCtx, logger, item.RunID, catalog.RunStatusSucceeded, &result, "")
}

func (w *Worker) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, w.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

func (w *Worker) finish(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	status catalog.RunStatus,
	result *catalog.PipelineResult,
	errText string,
) {
	if err := w.runs.UpdateRunStatus(ctx, runID, status, result, errText); err != nil {
		logger.Error("final run status update failed", zap.String("status", string(status)), zap.Error(err))
	}
}

func describe(err error, runCtx context.Context) string {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("run timed out: %v", err)
	}
	return err.Error()
}
