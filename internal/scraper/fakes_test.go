package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// fakeFetcher serves canned pages by URL and records in-flight concurrency.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failing  map[string]error
	latency  time.Duration
	gate     chan struct{}
	onFetch  func(url string)
	calls    []string
	inFlight int
	maxSeen  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[string]string),
		failing: make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (catalog.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	body, ok := f.pages[url]
	failErr := f.failing[url]
	latency := f.latency
	gate := f.gate
	hook := f.onFetch
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return catalog.Page{}, err
	}
	if gate != nil {
		select {
		case <-ctx.Done():
			return catalog.Page{}, ctx.Err()
		case <-gate:
		}
	}
	if latency > 0 {
		select {
		case <-ctx.Done():
			return catalog.Page{}, ctx.Err()
		case <-time.After(latency):
		}
	}
	if failErr != nil {
		return catalog.Page{}, failErr
	}
	if !ok {
		return catalog.Page{}, &catalog.StatusError{URL: url, Code: 404}
	}
	return catalog.Page{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) callsTo(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) maxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

// countingStore wraps a GameStore and counts Begin calls.
type countingStore struct {
	catalog.GameStore
	mu     sync.Mutex
	begins int
}

func (s *countingStore) Begin(ctx context.Context) (catalog.GameBatch, error) {
	s.mu.Lock()
	s.begins++
	s.mu.Unlock()
	return s.GameStore.Begin(ctx)
}

func (s *countingStore) beginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins
}

// failingCommitStore hands out batches whose Commit fails.
type failingCommitStore struct {
	catalog.GameStore
	rolledBack bool
}

var errCommit = errors.New("commit refused")

func (s *failingCommitStore) Begin(ctx context.Context) (catalog.GameBatch, error) {
	batch, err := s.GameStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingCommitBatch{GameBatch: batch, store: s}, nil
}

type failingCommitBatch struct {
	catalog.GameBatch
	store *failingCommitStore
}

func (b *failingCommitBatch) Commit(context.Context) error {
	return errCommit
}

func (b *failingCommitBatch) Rollback(ctx context.Context) error {
	b.store.rolledBack = true
	return b.GameBatch.Rollback(ctx)
}

type fakeNamer struct{ digest string }

func (n fakeNamer) ObjectPath(day time.Time, _ []byte) string {
	return "listings/" + day.Format("2006-01-02") + "/" + n.digest + ".html"
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []catalog.RunEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if ev, ok := payload.(catalog.RunEvent); ok {
		p.events = append(p.events, ev)
	}
	return "msg-1", nil
}
