package eventhandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/achievement"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu   sync.Mutex
	got  []achievement.Achievement
	fail bool
}

func (s *memorySink) Record(_ context.Context, a achievement.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, a)
	return nil
}

func (s *memorySink) types() []achievement.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]achievement.Type, 0, len(s.got))
	for _, a := range s.got {
		out = append(out, a.Type)
	}
	return out
}

// payloadEvent stands in for an event rebuilt from the wire.
type payloadEvent struct {
	shared.BaseEvent
	payload map[string]interface{}
}

func (e payloadEvent) Payload() map[string]interface{} { return e.payload }

func newHandler(sink AchievementSink) *OnLearningMilestoneHandler {
	h := NewOnLearningMilestoneHandler(sink, slog.New(slog.NewTextHandler(io.Discard, nil)), MilestoneConfig{})
	h.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestMilestonesAwardAchievements(t *testing.T) {
	sink := &memorySink{}
	h := newHandler(sink)

	events := []shared.Event{
		shared.NewEnrollmentCreatedEvent("u1", "c1", "e1", "p1", "100"),
		shared.NewLessonCompletedEvent("u1", "c1", "L1", 1, 25),
		shared.NewLessonCompletedEvent("u1", "c1", "L2", 2, 50),
		shared.NewCourseCompletedEvent("u1", "c1", "e1"),
		shared.NewCertificateIssuedEvent("u1", "c1", "cert-1", "LH-PR-2024-001"),
		shared.NewCourseModeratedEvent("c1", "published", ""),
	}
	for _, e := range events {
		assert.NoError(t, h.Handle(e))
	}

	assert.Equal(t, []achievement.Type{
		achievement.TypeFirstEnrollment,
		achievement.TypeFirstLesson,
		achievement.TypeCourseCompletion,
		achievement.TypeCertificateEarned,
	}, sink.types())
	assert.Equal(t, 10, sink.got[0].Points)
	assert.Equal(t, "u1", sink.got[0].UserID)
}

func TestFirstLessonFromRemotePayload(t *testing.T) {
	sink := &memorySink{}
	h := newHandler(sink)

	remote := payloadEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLessonCompleted, "u2"),
		payload:   map[string]interface{}{"completed_count": float64(1)},
	}
	require.NoError(t, h.Handle(remote))

	assert.Equal(t, []achievement.Type{achievement.TypeFirstLesson}, sink.types())
}

func TestSinkFailureIsSwallowed(t *testing.T) {
	h := newHandler(&memorySink{fail: true})
	assert.NoError(t, h.Handle(shared.NewCourseCompletedEvent("u1", "c1", "e1")))
}

func TestAllowGatesAwards(t *testing.T) {
	sink := &memorySink{}
	h := NewOnLearningMilestoneHandler(sink, slog.New(slog.NewTextHandler(io.Discard, nil)), MilestoneConfig{
		Allow: func(userID string) bool { return userID == "u1" },
	})

	require.NoError(t, h.Handle(shared.NewCourseCompletedEvent("u2", "c1", "e2")))
	require.NoError(t, h.Handle(shared.NewCourseCompletedEvent("u1", "c1", "e1")))

	require.Len(t, sink.got, 1)
	assert.Equal(t, "u1", sink.got[0].UserID)
}

type subscriberFunc func(shared.EventType, shared.EventHandler) error

func (f subscriberFunc) Subscribe(t shared.EventType, h shared.EventHandler) error { return f(t, h) }
func (f subscriberFunc) SubscribeAll(shared.EventHandler) error                    { return nil }

func TestRegister(t *testing.T) {
	var types []shared.EventType
	bus := subscriberFunc(func(t shared.EventType, _ shared.EventHandler) error {
		types = append(types, t)
		return nil
	})

	require.NoError(t, newHandler(&memorySink{}).Register(bus))
	assert.ElementsMatch(t, []shared.EventType{
		shared.EventEnrollmentCreated,
		shared.EventLessonCompleted,
		shared.EventCourseCompleted,
		shared.EventCertificateIssued,
	}, types)
}
