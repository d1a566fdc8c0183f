package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
)

// Detector flags pages that need a rendered fetch.
type Detector interface {
	ShouldPromote(page catalog.Page) bool
}

// Promoting fetches with primary and re-fetches with rendered when the
// detector flags the result. A failed rendered fetch falls back to the
// primary page.
type Promoting struct {
	primary  catalog.Fetcher
	rendered catalog.Fetcher
	detector Detector
	logger   *zap.Logger
}

// NewPromoting builds a Promoting fetcher.
func NewPromoting(primary, rendered catalog.Fetcher, detector Detector, logger *zap.Logger) *Promoting {
	return &Promoting{
		primary:  primary,
		rendered: rendered,
		detector: detector,
		logger:   logging.OrNop(logger).Named("promoting"),
	}
}

// Fetch implements catalog.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, url string) (catalog.Page, error) {
	page, err := p.primary.Fetch(ctx, url)
	if err != nil || !p.detector.ShouldPromote(page) {
		return page, err
	}
	p.logger.Info("promoting to headless fetch", zap.String("url", url), zap.Int("bytes", len(page.Body)))
	rendered, err := p.rendered.Fetch(ctx, url)
	if err != nil {
		p.logger.Warn("headless fetch failed, keeping plain response", zap.String("url", url), zap.Error(err))
		return page, nil
	}
	return rendered, nil
}
