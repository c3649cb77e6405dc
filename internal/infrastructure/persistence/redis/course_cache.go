package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/engine"
	"github.com/learnhub/learnhub-engine/internal/application/normalize"
)

// CachedDirectory serves the published course list from Redis and falls
// back to a long-lived stale copy when the directory fails.
type CachedDirectory struct {
	next     engine.CourseDirectory
	store    Store
	ttl      time.Duration
	staleTTL time.Duration
	logger   *slog.Logger
}

// NewCachedDirectory wraps next. Zero TTLs take the package defaults.
func NewCachedDirectory(next engine.CourseDirectory, store Store, ttl, staleTTL time.Duration, logger *slog.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = TTLCourseList
	}
	if staleTTL <= 0 {
		staleTTL = TTLCourseListStale
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDirectory{
		next:     next,
		store:    store,
		ttl:      ttl,
		staleTTL: staleTTL,
		logger:   logger.With("component", "course_cache"),
	}
}

// ListPublishedCourses implements engine.CourseDirectory.
func (d *CachedDirectory) ListPublishedCourses(ctx context.Context) ([]normalize.RawCourse, error) {
	var cached []normalize.RawCourse
	err := d.store.Get(ctx, CourseListKey(), &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		d.logger.Warn("course cache read failed", "error", err)
	}

	courses, err := d.next.ListPublishedCourses(ctx)
	if err != nil {
		var stale []normalize.RawCourse
		if staleErr := d.store.Get(ctx, StaleCourseListKey(), &stale); staleErr == nil {
			d.logger.Warn("directory failed, serving stale course list", "error", err, "count", len(stale))
			return stale, nil
		}
		return nil, err
	}

	if err := d.store.Set(ctx, CourseListKey(), courses, d.ttl); err != nil {
		d.logger.Warn("course cache write failed", "error", err)
	}
	if err := d.store.Set(ctx, StaleCourseListKey(), courses, d.staleTTL); err != nil {
		d.logger.Warn("stale course cache write failed", "error", err)
	}
	return courses, nil
}

// Invalidate drops the fresh copy so the next read goes to the directory.
// The stale copy is kept.
func (d *CachedDirectory) Invalidate(ctx context.Context) error {
	return d.store.Delete(ctx, CourseListKey())
}
