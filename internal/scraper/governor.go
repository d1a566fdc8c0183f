package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
)

// ItemEnricher enriches a single candidate.
type ItemEnricher interface {
	Enrich(ctx context.Context, item catalog.CandidateItem) catalog.Enrichment
}

// GovernorConfig bounds the detail fan-out.
type GovernorConfig struct {
	Concurrency int
	// Delay is paid after a task acquires its slot and before it fetches.
	Delay time.Duration
}

// Governor runs enrichments with at most Concurrency in flight.
type Governor struct {
	enricher ItemEnricher
	cfg      GovernorConfig
	logger   *zap.Logger
}

// NewGovernor builds a Governor.
func NewGovernor(enricher ItemEnricher, cfg GovernorConfig, logger *zap.Logger) *Governor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Governor{
		enricher: enricher,
		cfg:      cfg,
		logger:   logging.OrNop(logger).Named("governor"),
	}
}

// EnrichAll enriches every item and returns one Enrichment per input, in
// input order. A failing item never cancels its siblings.
func (g *Governor) EnrichAll(ctx context.Context, items []catalog.CandidateItem) []catalog.Enrichment {
	results := make([]catalog.Enrichment, len(items))

	var group errgroup.Group
	group.SetLimit(g.cfg.Concurrency)
	for i, item := range items {
		group.Go(func() error {
			if err := pause(ctx, g.cfg.Delay); err != nil {
				results[i] = degraded(item, fmt.Errorf("wait for slot delay: %w", err))
				return nil
			}
			results[i] = g.enricher.Enrich(ctx, item)
			return nil
		})
	}
	_ = group.Wait()

	g.logger.Debug("enrichment fan-out finished",
		zap.Int("items", len(items)),
		zap.Int("degraded", countDegraded(results)),
	)
	return results
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func countDegraded(results []catalog.Enrichment) int {
	n := 0
	for _, r := range results {
		if r.Degraded() {
			n++
		}
	}
	return n
}
