package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	queuemem "github.com/JakeFAU/game-catalog/internal/queue/memory"
	"github.com/JakeFAU/game-catalog/internal/storage/memory"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  int
	result catalog.PipelineResult
	err    error
	block  bool
}

func (r *fakeRunner) Run(ctx context.Context) (catalog.PipelineResult, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return catalog.PipelineResult{}, ctx.Err()
	}
	return r.result, r.err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func seedRun(t *testing.T, runs *memory.RunStore, q *queuemem.Queue, id string) {
	t.Helper()
	require.NoError(t, runs.CreateRun(context.Background(), catalog.Run{
		ID:        id,
		Status:    catalog.RunStatusQueued,
		Mode:      catalog.RunModeBackground,
		Submitted: time.Now(),
	}))
	require.NoError(t, q.Enqueue(context.Background(), catalog.QueueItem{RunID: id}))
}

func waitForStatus(t *testing.T, runs *memory.RunStore, id string, want catalog.RunStatus) catalog.Run {
	t.Helper()
	var run catalog.Run
	require.Eventually(t, func() bool {
		got, err := runs.GetRun(context.Background(), id)
		if err != nil {
			return false
		}
		run = got
		return got.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return run
}

func TestWorkerMarksRunSucceeded(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queuemem.NewQueue(4)
	runs := memory.NewRunStore()
	runner := &fakeRunner{result: catalog.PipelineResult{Created: 2, Updated: 1, Total: 3}}
	seedRun(t, runs, q, "run-ok")

	go New(q, runs, runner, Config{}, zap.NewNop()).Run(ctx)

	run := waitForStatus(t, runs, "run-ok", catalog.RunStatusSucceeded)
	require.Equal(t, &catalog.PipelineResult{Created: 2, Updated: 1, Total: 3}, run.Result)
	require.NotNil(t, run.Started)
	require.NotNil(t, run.Finished)
	require.Empty(t, run.ErrorText)
	require.Equal(t, 1, runner.callCount())
}

func TestWorkerMarksRunFailed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queuemem.NewQueue(4)
	runs := memory.NewRunStore()
	runner := &fakeRunner{err: errors.New("listing_fetch: boom")}
	seedRun(t, runs, q, "run-bad")

	go New(q, runs, runner, Config{}, nil).Run(ctx)

	run := waitForStatus(t, runs, "run-bad", catalog.RunStatusFailed)
	require.Equal(t, "listing_fetch: boom", run.ErrorText)
	require.Nil(t, run.Result)
}

func TestWorkerRunTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queuemem.NewQueue(4)
	runs := memory.NewRunStore()
	runner := &fakeRunner{block: true}
	seedRun(t, runs, q, "run-slow")

	go New(q, runs, runner, Config{RunTimeout: 20 * time.Millisecond}, nil).Run(ctx)

	run := waitForStatus(t, runs, "run-slow", catalog.RunStatusFailed)
	require.Contains(t, run.ErrorText, "run timed out")
}

func TestWorkerWithoutRunner(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queuemem.NewQueue(1)
	runs := memory.NewRunStore()
	seedRun(t, runs, q, "run-none")

	go New(q, runs, nil, Config{}, nil).Run(ctx)

	run := waitForStatus(t, runs, "run-none", catalog.RunStatusFailed)
	require.Equal(t, "no pipeline configured", run.ErrorText)
}

func TestWorkerStopsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	q := queuemem.NewQueue(1)
	done := make(chan struct{})
	go func() {
		New(q, memory.NewRunStore(), &fakeRunner{}, Config{}, nil).Run(context.Background())
		close(done)
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}

func TestWorkerShutdownRecordsFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	q := queuemem.NewQueue(1)
	runs := memory.NewRunStore()
	runner := &fakeRunner{block: true}
	seedRun(t, runs, q, "run-interrupted")

	done := make(chan struct{})
	go func() {
		New(q, runs, runner, Config{}, nil).Run(ctx)
		close(done)
	}()

	waitForStatus(t, runs, "run-interrupted", catalog.RunStatusRunning)
	cancel()
	<-done

	run, err := runs.GetRun(context.Background(), "run-interrupted")
	require.NoError(t, err)
	require.Equal(t, catalog.RunStatusFailed, run.Status)
	require.Equal(t, context.Canceled.Error(), run.ErrorText)
}
