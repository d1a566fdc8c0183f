package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/clock"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
)

// Stage names the pipeline step a fatal error came from.
type Stage string

// Fatal stages.
const (
	StageListingFetch Stage = "listing_fetch"
	StageListingParse Stage = "listing_parse"
	StageReconcile    Stage = "reconcile"
)

// ErrRunDiscarded is returned when the context ends before reconciliation.
var ErrRunDiscarded = errors.New("run discarded before reconcile")

// StageError wraps a fatal pipeline failure.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PipelineConfig is the static part of a pipeline.
type PipelineConfig struct {
	ListingURL string
	// SingleFlight collapses concurrent Run calls into one execution.
	SingleFlight       bool
	ArchiveContentType string
	// EventTopic receives a RunEvent after every successful run.
	EventTopic string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithArchive stores each fetched listing page at the path namer derives.
func WithArchive(blobs catalog.BlobStore, namer catalog.ArchiveNamer) Option {
	return func(p *Pipeline) {
		p.blobs = blobs
		p.namer = namer
	}
}

// WithPublisher publishes run events.
func WithPublisher(publisher catalog.Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = publisher
	}
}

// WithClock overrides the wall clock.
func WithClock(clock catalog.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.OrNop(logger).Named("pipeline")
	}
}

// Pipeline orchestrates fetch listing → parse → enrich → reconcile.
type Pipeline struct {
	cfg        PipelineConfig
	listing    catalog.Fetcher
	governor   *Governor
	reconciler *Reconciler

	blobs     catalog.BlobStore
	namer     catalog.ArchiveNamer
	publisher catalog.Publisher
	clock     catalog.Clock
	logger    *zap.Logger

	flight   singleflight.Group
	flightMu sync.Mutex
	current  *flightState
}

// flightState owns the context of a shared run. The context outlives any
// single caller and is canceled once every waiter has left.
type flightState struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewPipeline wires the pipeline components.
func NewPipeline(
	cfg PipelineConfig,
	listing catalog.Fetcher,
	governor *Governor,
	reconciler *Reconciler,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		listing:    listing,
		governor:   governor,
		reconciler: reconciler,
		clock:      clock.System{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.ArchiveContentType == "" {
		p.cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	return p
}

// Run executes one scrape-and-upsert pass. With SingleFlight enabled,
// callers that arrive while a run is in progress receive its result.
func (p *Pipeline) Run(ctx context.Context) (catalog.PipelineResult, error) {
	if !p.cfg.SingleFlight {
		return p.run(ctx)
	}
	st := p.joinFlight(ctx)
	defer p.leaveFlight(st)

	ch := p.flight.DoChan(flightKey, func() (any, error) {
		return p.run(st.ctx)
	})
	select {
	case <-ctx.Done():
		return catalog.PipelineResult{}, fmt.Errorf("wait for run: %w", ctx.Err())
	case res := <-ch:
		if res.Shared {
			p.logger.Info("joined in-flight run")
		}
		result, _ := res.Val.(catalog.PipelineResult)
		return result, res.Err
	}
}

const flightKey = "run"

func (p *Pipeline) joinFlight(ctx context.Context) *flightState {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	if p.current == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		p.current = &flightState{ctx: fctx, cancel: cancel}
	}
	p.current.waiters++
	return p.current
}

// leaveFlight drops a waiter. The last one out cancels the shared run and
// forgets it so the next caller starts fresh.
func (p *Pipeline) leaveFlight(st *flightState) {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()
	st.waiters--
	if st.waiters > 0 {
		return
	}
	st.cancel()
	if p.current == st {
		p.current = nil
		p.flight.Forget(flightKey)
	}
}

func (p *Pipeline) run(ctx context.Context) (catalog.PipelineResult, error) {
	start := p.clock.Now()
	result, degradedCount, archiveURI, err := p.execute(ctx)
	elapsed := p.clock.Now().Sub(start)
	if err != nil {
		metrics.ObserveRun(string(catalog.RunStatusFailed), elapsed)
		p.logger.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return catalog.PipelineResult{}, err
	}
	metrics.ObserveRun(string(catalog.RunStatusSucceeded), elapsed)
	p.logger.Info("run finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("total", result.Total),
		zap.Int("degraded", degradedCount),
		zap.Duration("elapsed", elapsed),
	)
	if result.Total > 0 {
		p.publish(ctx, catalog.RunEvent{
			RunAt:      start,
			ListingURL: p.cfg.ListingURL,
			Created:    result.Created,
			Updated:    result.Updated,
			Total:      result.Total,
			Degraded:   degradedCount,
			ArchiveURI: archiveURI,
		})
	}
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context) (catalog.PipelineResult, int, string, error) {
	page, err := p.listing.Fetch(ctx, p.cfg.ListingURL)
	if err != nil {
		return catalog.PipelineResult{}, 0, "", &StageError{Stage: StageListingFetch, Err: err}
	}
	archiveURI := p.archive(ctx, page.Body)

	items, err := ParseListing(page.Body)
	if err != nil {
		return catalog.PipelineResult{}, 0, archiveURI, &StageError{Stage: StageListingParse, Err: err}
	}
	if len(items) == 0 {
		p.logger.Warn("listing yielded no candidates", zap.String("url", p.cfg.ListingURL))
		return catalog.PipelineResult{}, 0, archiveURI, nil
	}

	enrichments := p.governor.EnrichAll(ctx, items)
	if err := ctx.Err(); err != nil {
		return catalog.PipelineResult{}, 0, archiveURI, fmt.Errorf("%w: %w", ErrRunDiscarded, err)
	}

	enriched := make([]catalog.EnrichedItem, len(enrichments))
	for i, e := range enrichments {
		enriched[i] = e.Item
	}
	result, err := p.reconciler.Reconcile(ctx, enriched)
	if err != nil {
		return catalog.PipelineResult{}, 0, archiveURI, &StageError{Stage: StageReconcile, Err: err}
	}
	return result, countDegraded(enrichments), archiveURI, nil
}

// archive stores the raw listing page. Failures are logged only.
func (p *Pipeline) archive(ctx context.Context, body []byte) string {
	if p.blobs == nil || p.namer == nil {
		return ""
	}
	objectPath := p.namer.ObjectPath(p.clock.Now(), body)
	uri, err := p.blobs.PutObject(ctx, objectPath, p.cfg.ArchiveContentType, bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("archive listing page", zap.String("path", objectPath), zap.Error(err))
		return ""
	}
	return uri
}

// publish sends the run event. Failures are logged only.
func (p *Pipeline) publish(ctx context.Context, event catalog.RunEvent) {
	if p.publisher == nil || p.cfg.EventTopic == "" {
		return
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.EventTopic, event); err != nil {
		p.logger.Warn("publish run event", zap.String("topic", p.cfg.EventTopic), zap.Error(err))
	}
}
