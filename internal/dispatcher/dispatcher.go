// Package dispatcher submits background runs and manages the worker pool
// that executes them.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/worker"
)

// Dispatcher fans out queued runs to a pool of workers.
type Dispatcher struct {
	queue   catalog.Queue
	runs    catalog.RunStore
	ids     catalog.IDGenerator
	clock   catalog.Clock
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(
	queue catalog.Queue,
	runs catalog.RunStore,
	ids catalog.IDGenerator,
	clock catalog.Clock,
	workers []*worker.Worker,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		runs:    runs,
		ids:     ids,
		clock:   clock,
		workers: workers,
		logger:  logging.OrNop(logger).Named("dispatcher"),
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("starting workers", zap.Int("count", len(d.workers)))
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	d.logger.Info("workers stopped")
}

// Submit records a queued background run and enqueues it.
func (d *Dispatcher) Submit(ctx context.Context) (catalog.Run, error) {
	id, err := d.ids.NewID()
	if err != nil {
		return catalog.Run{}, fmt.Errorf("generate run id: %w", err)
	}
	run := catalog.Run{
		ID:        id,
		Status:    catalog.RunStatusQueued,
		Mode:      catalog.RunModeBackground,
		Submitted: d.clock.Now(),
	}
	if err := d.runs.CreateRun(ctx, run); err != nil {
		return catalog.Run{}, fmt.Errorf("create run: %w", err)
	}
	if err := d.Enqueue(ctx, catalog.QueueItem{RunID: id, Attempt: 1, Submitted: run.Submitted.Unix()}); err != nil {
		if uerr := d.runs.UpdateRunStatus(
			context.WithoutCancel(ctx), id, catalog.RunStatusFailed, nil, err.Error(),
		); uerr != nil {
			d.logger.Warn("mark unqueued run failed", logging.RunID(id), zap.Error(uerr))
		}
		return catalog.Run{}, err
	}
	d.logger.Info("run queued", logging.RunID(id))
	return run, nil
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item catalog.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
