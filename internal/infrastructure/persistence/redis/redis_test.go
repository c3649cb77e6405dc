package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
)

// memStore is an in-memory Store. TTLs are recorded, not enforced.
type memStore struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
	failOn error
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	data, ok := m.values[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memStore) GetString(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return "", m.failOn
	}
	data, ok := m.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return string(data), nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return 0, m.failOn
	}
	var n int64
	if data, ok := m.values[key]; ok {
		_ = json.Unmarshal(data, &n)
	}
	n++
	m.values[key], _ = json.Marshal(n)
	return n, nil
}

type stubDirectory struct {
	courses []normalize.RawCourse
	err     error
	calls   int
}

func (s *stubDirectory) ListPublishedCourses(context.Context) ([]normalize.RawCourse, error) {
	s.calls++
	return s.courses, s.err
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	price := decimal.RequireFromString("19.99")
	title := "Go"
	next := &stubDirectory{courses: []normalize.RawCourse{{ID: "c1", Title: &title, Price: &price}}}
	store := newMemStore()
	dir := NewCachedDirectory(next, store, 0, 0, nil)

	first, err := dir.ListPublishedCourses(ctx)
	require.NoError(t, err)
	second, err := dir.ListPublishedCourses(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].Price.Equal(price))
	assert.Equal(t, TTLCourseList, store.ttls[CourseListKey()])
	assert.Equal(t, TTLCourseListStale, store.ttls[StaleCourseListKey()])

	t.Run("stale copy served when directory fails", func(t *testing.T) {
		require.NoError(t, dir.Invalidate(ctx))
		next.err = errors.New("directory down")

		courses, err := dir.ListPublishedCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, "c1", courses[0].ID)
	})

	t.Run("error without any copy", func(t *testing.T) {
		empty := NewCachedDirectory(&stubDirectory{err: errors.New("down")}, newMemStore(), 0, 0, nil)
		_, err := empty.ListPublishedCourses(ctx)
		assert.Error(t, err)
	})
}

func TestSessionIdentity(t *testing.T) {
	store := newMemStore()
	store.values[SessionKey("s1")] = []byte("user-1")
	identity := NewSessionIdentity(store)

	userID, ok, err := identity.CurrentUser(WithSessionID(context.Background(), "s1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok, err = identity.CurrentUser(WithSessionID(context.Background(), "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = identity.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	store.failOn = errors.New("connection reset")
	_, _, err = identity.CurrentUser(WithSessionID(context.Background(), "s1"))
	assert.Error(t, err)
}

func TestCertificateSequence(t *testing.T) {
	store := newMemStore()
	seq := NewCertificateSequence(store, "")

	for want := 1; want <= 3; want++ {
		n, err := seq.NextCertificateSequence(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Contains(t, store.values, SequenceKey(DefaultCertificateSequence))

	store.failOn = errors.New("down")
	_, err := seq.NextCertificateSequence(context.Background())
	assert.Error(t, err)
}

func TestConfigAddr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.Options().Addr)
}
