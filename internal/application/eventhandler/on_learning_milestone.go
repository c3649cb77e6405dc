// Package eventhandler contains the subscribers of domain events.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/achievement"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEARNING MILESTONE HANDLER
// Turns enrollment and progress events into achievements:
//   enrollment.created          -> first_enrollment
//   enrollment.lesson_completed -> first_lesson (first lesson only)
//   enrollment.course_completed -> course_completion
//   certificate.issued          -> certificate_earned
// The sink is best-effort. A failure is logged and never reaches the
// workflow that published the event.
// ═══════════════════════════════════════════════════════════════════════════

// AchievementSink records achievements. Implementations should ignore a
// repeated (user, type) pair.
type AchievementSink interface {
	Record(ctx context.Context, a achievement.Achievement) error
}

// MilestoneConfig configures the handler.
type MilestoneConfig struct {
	// RecordTimeout bounds a single sink call.
	RecordTimeout time.Duration

	// Allow gates awards per user. Nil allows everyone.
	Allow func(userID string) bool
}

// DefaultMilestoneConfig returns the default configuration.
func DefaultMilestoneConfig() MilestoneConfig {
	return MilestoneConfig{RecordTimeout: 5 * time.Second}
}

// OnLearningMilestoneHandler awards achievements.
type OnLearningMilestoneHandler struct {
	sink   AchievementSink
	logger *slog.Logger
	config MilestoneConfig
	now    func() time.Time
}

// NewOnLearningMilestoneHandler creates the handler.
func NewOnLearningMilestoneHandler(sink AchievementSink, logger *slog.Logger, config MilestoneConfig) *OnLearningMilestoneHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RecordTimeout <= 0 {
		config.RecordTimeout = DefaultMilestoneConfig().RecordTimeout
	}
	return &OnLearningMilestoneHandler{
		sink:   sink,
		logger: logger.With("handler", "on_learning_milestone"),
		config: config,
		now:    time.Now,
	}
}

// Register subscribes the handler to every milestone event.
func (h *OnLearningMilestoneHandler) Register(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{
		shared.EventEnrollmentCreated,
		shared.EventLessonCompleted,
		shared.EventCourseCompleted,
		shared.EventCertificateIssued,
	} {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle implements shared.EventHandler. It always returns nil.
func (h *OnLearningMilestoneHandler) Handle(event shared.Event) error {
	kind, ok := achievementFor(event)
	if !ok {
		return nil
	}

	userID := event.AggregateID()
	if userID == "" {
		h.logger.Warn("milestone event without user", "event_type", event.EventType())
		return nil
	}

	if h.config.Allow != nil && !h.config.Allow(userID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.RecordTimeout)
	defer cancel()

	a := achievement.New(userID, kind, h.now().UTC())
	if err := h.sink.Record(ctx, a); err != nil {
		h.logger.Warn("failed to record achievement",
			"user_id", userID,
			"achievement", kind,
			"error", err,
		)
		return nil
	}

	h.logger.Debug("achievement recorded",
		"user_id", userID,
		"achievement", kind,
		"points", a.Points,
	)
	return nil
}

// achievementFor maps an event to the achievement it earns.
func achievementFor(event shared.Event) (achievement.Type, bool) {
	switch event.EventType() {
	case shared.EventEnrollmentCreated:
		return achievement.TypeFirstEnrollment, true
	case shared.EventLessonCompleted:
		if isFirstLesson(event) {
			return achievement.TypeFirstLesson, true
		}
	case shared.EventCourseCompleted:
		return achievement.TypeCourseCompletion, true
	case shared.EventCertificateIssued:
		return achievement.TypeCertificateEarned, true
	}
	return "", false
}

// isFirstLesson accepts both the typed event and one rebuilt from JSON,
// whose numbers are float64.
func isFirstLesson(event shared.Event) bool {
	if e, ok := event.(shared.LessonCompletedEvent); ok {
		return e.IsFirstLesson()
	}
	switch n := event.Payload()["completed_count"].(type) {
	case int:
		return n == 1
	case float64:
		return n == 1
	}
	return false
}
