package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
)

// Retrying wraps a single-attempt Fetcher with a RetryPolicy.
type Retrying struct {
	next   catalog.Fetcher
	policy catalog.RetryPolicy
	logger *zap.Logger
}

// NewRetrying builds a retrying fetcher around next.
func NewRetrying(next catalog.Fetcher, policy catalog.RetryPolicy, logger *zap.Logger) *Retrying {
	return &Retrying{
		next:   next,
		policy: policy,
		logger: logging.OrNop(logger).Named("fetcher"),
	}
}

// Fetch tries url until it succeeds, the policy gives up, or ctx ends.
// Failures are reported as *catalog.FetchError wrapping the last error.
func (r *Retrying) Fetch(ctx context.Context, url string) (catalog.Page, error) {
	attempt := 0
	for {
		attempt++
		page, err := r.next.Fetch(ctx, url)
		if err == nil {
			metrics.ObserveFetch(url, "ok", len(page.Body))
			return page, nil
		}
		metrics.ObserveFetch(url, "error", 0)

		if ctx.Err() != nil || !r.policy.ShouldRetry(err, attempt) {
			return catalog.Page{}, &catalog.FetchError{URL: url, Attempts: attempt, Err: err}
		}

		wait := r.policy.Backoff(attempt)
		r.logger.Debug("fetch attempt failed, backing off",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return catalog.Page{}, &catalog.FetchError{
				URL:      url,
				Attempts: attempt,
				Err:      fmt.Errorf("%w (backoff interrupted: %w)", err, sleepErr),
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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
