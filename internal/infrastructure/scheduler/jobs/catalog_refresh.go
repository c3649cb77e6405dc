// Package jobs contains the periodic jobs run by the scheduler.
package jobs

import (
	"context"
	"errors"
	"log/slog"
)

// CatalogLoader re-runs engine initialization.
type CatalogLoader interface {
	Load(ctx context.Context)
	Ready() bool
}

// CacheInvalidator drops the cached course list.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ErrCatalogNotLoaded is returned when a refresh leaves the engine not ready.
var ErrCatalogNotLoaded = errors.New("catalog refresh did not complete")

// CatalogRefreshJob invalidates the fresh course-list cache and reloads the
// engine so moderation changes made elsewhere become visible.
type CatalogRefreshJob struct {
	loader      CatalogLoader
	cache       CacheInvalidator
	withSession func(ctx context.Context) context.Context
	logger      *slog.Logger
}

// NewCatalogRefreshJob creates the job. cache and withSession may be nil;
// withSession attaches the session the engine should reload under.
func NewCatalogRefreshJob(loader CatalogLoader, cache CacheInvalidator, withSession func(context.Context) context.Context, logger *slog.Logger) *CatalogRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogRefreshJob{
		loader:      loader,
		cache:       cache,
		withSession: withSession,
		logger:      logger.With("job", "catalog-refresh"),
	}
}

func (j *CatalogRefreshJob) Name() string { return "catalog-refresh" }

func (j *CatalogRefreshJob) Description() string {
	return "Reload published courses and the learner's records"
}

// Run implements scheduler.Job. A failed invalidation is logged and the
// reload still happens; the stale-cache fallback keeps it useful.
func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	if j.cache != nil {
		if err := j.cache.Invalidate(ctx); err != nil {
			j.logger.Warn("failed to invalidate course cache", "error", err)
		}
	}
	if j.withSession != nil {
		ctx = j.withSession(ctx)
	}

	j.loader.Load(ctx)
	if !j.loader.Ready() {
		return ErrCatalogNotLoaded
	}
	return nil
}
