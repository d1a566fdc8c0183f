// Package memory provides the bounded in-process queue for background runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// ErrQueueFull is returned by Enqueue when no capacity remains.
var ErrQueueFull = catalog.ErrQueueFull

// ErrQueueClosed is returned once Close has been called.
var ErrQueueClosed = catalog.ErrQueueClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan catalog.QueueItem
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a queue holding up to capacity pending runs. Capacity
// below one is raised to one.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan catalog.QueueItem, capacity)}
}

// Enqueue pushes a run without waiting for capacity. A full queue answers
// ErrQueueFull so callers can shed load instead of hanging.
func (q *Queue) Enqueue(ctx context.Context, item catalog.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue pops the next run, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (catalog.QueueItem, error) {
	select {
	case <-ctx.Done():
		return catalog.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return catalog.QueueItem{}, ErrQueueClosed
		}
		return item, nil
	}
}

// Close stops accepting runs. Pending runs can still be dequeued.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
