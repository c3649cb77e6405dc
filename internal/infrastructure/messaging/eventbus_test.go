package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestInMemoryEventBusSync(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger, EnableMetrics: true})
	defer bus.Close()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventEnrollmentCreated, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+e.EventType())
		return errors.New("sink down")
	}))

	require.NoError(t, bus.Publish(shared.NewEnrollmentCreatedEvent("u1", "c1", "e1", "p1", "100")))
	require.NoError(t, bus.Publish(shared.NewCourseCompletedEvent("u1", "c1", "e1")))

	assert.Equal(t, []shared.EventType{
		shared.EventEnrollmentCreated,
		"all:" + shared.EventEnrollmentCreated,
		"all:" + shared.EventCourseCompleted,
	}, got)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.HandlerExecutions)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBusAsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2, Logger: quietLogger})

	var calls atomic.Int32
	require.NoError(t, bus.Subscribe(shared.EventLessonCompleted, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		calls.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("u1", "c1", "L1", 1, 25)))
	}
	bus.Drain()
	assert.Equal(t, int32(5), calls.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewCourseCompletedEvent("u1", "c1", "e1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventCourseCompleted, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Logger: quietLogger, EnableMetrics: true})
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish(shared.NewCourseCompletedEvent("u1", "c1", "e1")))
	})
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().HandlerFailures)
}

func TestTimeoutMiddleware(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := TimeoutMiddleware(10 * time.Millisecond)(func(shared.Event) error {
		<-release
		return nil
	})

	err := h(shared.NewCourseCompletedEvent("u1", "c1", "e1"))
	assert.ErrorIs(t, err, ErrHandlerTimeout)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis bus
// ─────────────────────────────────────────────────────────────────────────────

type fakeRedis struct {
	mu        sync.Mutex
	published []string
	incoming  chan RedisMessage
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{incoming: make(chan RedisMessage, 4)}
}

func (f *fakeRedis) Publish(_ context.Context, _ string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message.(string))
	return nil
}

func (f *fakeRedis) Subscribe(context.Context, ...string) (<-chan RedisMessage, error) {
	return f.incoming, nil
}

func (f *fakeRedis) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestRedisEventBus(t *testing.T) {
	rdb := newFakeRedis()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     rdb,
		InstanceID: "me",
		Logger:     quietLogger,
	})
	require.NoError(t, err)

	received := make(chan shared.Event, 4)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		received <- e
		return nil
	}))

	// Local publish reaches Redis and the local handler with the typed event.
	require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("u1", "c1", "cert-1", "LH-PR-2024-001")))
	local := <-received
	_, typed := local.(shared.CertificateIssuedEvent)
	assert.True(t, typed)

	rdb.mu.Lock()
	require.Len(t, rdb.published, 1)
	var env eventEnvelope
	require.NoError(t, json.Unmarshal([]byte(rdb.published[0]), &env))
	rdb.mu.Unlock()
	assert.Equal(t, "me", env.InstanceID)
	assert.Equal(t, shared.EventCertificateIssued, env.EventType)

	// Our own echo is skipped, a remote event is delivered.
	echo, _ := json.Marshal(env)
	rdb.incoming <- RedisMessage{Payload: string(echo)}

	env.InstanceID = "other"
	env.AggregateID = "u2"
	remote, _ := json.Marshal(env)
	rdb.incoming <- RedisMessage{Payload: string(remote)}

	select {
	case e := <-received:
		assert.Equal(t, "u2", e.AggregateID())
		_, isRemote := e.(*RemoteEvent)
		assert.True(t, isRemote)
		assert.Equal(t, "LH-PR-2024-001", e.Payload()["verification_code"])
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}

	require.NoError(t, bus.Close())
	assert.True(t, rdb.closed)
	assert.Empty(t, received)
}
