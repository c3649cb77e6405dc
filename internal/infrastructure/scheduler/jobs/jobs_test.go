package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/messaging"
)

type sessionKey struct{}

type fakeLoader struct {
	ready   bool
	session any
	loads   int
}

func (l *fakeLoader) Load(ctx context.Context) {
	l.loads++
	l.session = ctx.Value(sessionKey{})
}

func (l *fakeLoader) Ready() bool { return l.ready }

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return f.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCatalogRefreshInvalidatesAndReloads(t *testing.T) {
	loader := &fakeLoader{ready: true}
	cache := &fakeInvalidator{err: errors.New("redis down")}
	withSession := func(ctx context.Context) context.Context {
		return context.WithValue(ctx, sessionKey{}, "s-1")
	}

	job := NewCatalogRefreshJob(loader, cache, withSession, discard())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, loader.loads)
	assert.Equal(t, "s-1", loader.session)
	assert.Equal(t, "catalog-refresh", job.Name())
}

func TestCatalogRefreshReportsNotReady(t *testing.T) {
	job := NewCatalogRefreshJob(&fakeLoader{}, nil, nil, discard())
	assert.ErrorIs(t, job.Run(context.Background()), ErrCatalogNotLoaded)
}

func TestBusMetricsReport(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{EnableMetrics: true, Logger: discard()})
	defer bus.Close()
	require.NoError(t, bus.Publish(shared.NewCourseModeratedEvent("c1", "published", "")))

	job := NewBusMetricsReportJob(bus, discard())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().TotalPublished)
}
