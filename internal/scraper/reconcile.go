package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/metrics"
)

// DescriptionPolicy decides what happens to a stored description when the
// incoming item has none.
type DescriptionPolicy string

// Description policies.
const (
	// DescriptionOverwrite always replaces the stored description, clearing it when absent.
	DescriptionOverwrite DescriptionPolicy = "overwrite"
	// DescriptionPreserve keeps the stored description when the item has none.
	DescriptionPreserve DescriptionPolicy = "preserve"
)

// Reconciler upserts enriched items into the game store keyed by slug.
type Reconciler struct {
	store  catalog.GameStore
	policy DescriptionPolicy
	logger *zap.Logger
}

// NewReconciler builds a Reconciler. An empty policy means DescriptionOverwrite.
func NewReconciler(store catalog.GameStore, policy DescriptionPolicy, logger *zap.Logger) *Reconciler {
	if policy == "" {
		policy = DescriptionOverwrite
	}
	return &Reconciler{
		store:  store,
		policy: policy,
		logger: logging.OrNop(logger).Named("reconciler"),
	}
}

// Reconcile writes items in one batch. Either every write is committed or
// none is.
func (r *Reconciler) Reconcile(ctx context.Context, items []catalog.EnrichedItem) (result catalog.PipelineResult, err error) {
	batch, err := r.store.Begin(ctx)
	if err != nil {
		return catalog.PipelineResult{}, fmt.Errorf("begin batch: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := batch.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.logger.Debug("rollback after failed reconcile", zap.Error(rbErr))
		}
	}()

	for _, item := range items {
		created, err := r.upsert(ctx, batch, item)
		if err != nil {
			return catalog.PipelineResult{}, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return catalog.PipelineResult{}, fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	result.Total = len(items)
	metrics.ObserveUpserts(result.Created, result.Updated)
	return result, nil
}

func (r *Reconciler) upsert(ctx context.Context, batch catalog.GameBatch, item catalog.EnrichedItem) (bool, error) {
	title := item.Title
	if title == "" {
		title = item.Slug
	}

	existing, found, err := batch.FindBySlug(ctx, item.Slug)
	if err != nil {
		return false, fmt.Errorf("find game %q: %w", item.Slug, err)
	}
	if !found {
		_, err := batch.Create(ctx, catalog.Game{
			Slug:        item.Slug,
			Title:       title,
			Description: item.Description,
			ReleaseDate: item.ReleaseDate,
		})
		if err != nil {
			return false, fmt.Errorf("create game %q: %w", item.Slug, err)
		}
		return true, nil
	}

	existing.Title = title
	if item.Description != nil || r.policy == DescriptionOverwrite {
		existing.Description = item.Description
	}
	if item.ReleaseDate != nil {
		existing.ReleaseDate = item.ReleaseDate
	}
	if err := batch.Update(ctx, existing); err != nil {
		return false, fmt.Errorf("update game %q: %w", item.Slug, err)
	}
	return false, nil
}
