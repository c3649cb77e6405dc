package engine

import (
	"context"

	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// UpdateProgress marks lessonID complete for the user's enrollment.
//
// Missing enrollments or courses are ignored, as is a lesson that is already
// complete (no store call is made). Progress is recomputed from the lesson
// count and never decreases. Store failures are logged and swallowed; on
// success a LessonCompletedEvent is published, followed by a
// CourseCompletedEvent when progress first reaches 100.
//
// Calls for the same enrollment run one at a time so that each persisted
// lesson set includes the lessons of the calls before it.
func (e *Engine) UpdateProgress(ctx context.Context, courseID, userID, lessonID string) {
	unlock := e.progress.Lock(enrollment.Key{UserID: userID, CourseID: courseID}.String())
	defer unlock()

	e.mu.RLock()
	en := e.findEnrollment(courseID, userID)
	c := e.findCourse(courseID)
	if en == nil || c == nil {
		e.mu.RUnlock()
		return
	}
	enrollmentID := en.ID
	previous := en.Progress
	lessons, added := en.WithLesson(lessonID)
	totalLessons := c.TotalLessons
	e.mu.RUnlock()

	if !added {
		return
	}
	if totalLessons <= 0 {
		e.logger.Warn("course has no lessons, progress stays at 0",
			"course_id", courseID,
			"total_lessons", totalLessons,
		)
	}

	progress := enrollment.NextProgress(previous, enrollment.CalculateProgress(len(lessons), totalLessons))

	raw, err := e.deps.Enrollments.UpdateProgress(ctx, enrollmentID, progress, lessons)
	if err != nil {
		e.logger.Error("failed to update progress",
			"user_id", userID,
			"course_id", courseID,
			"lesson_id", lessonID,
			"error", err,
		)
		return
	}
	updated, err := e.normalizer.Enrollment(raw)
	if err != nil {
		e.logger.Error("store returned an invalid enrollment",
			"enrollment_id", enrollmentID,
			"error", err,
		)
		return
	}

	now := e.now().UTC()

	e.mu.Lock()
	live := e.findEnrollment(courseID, userID)
	if live == nil {
		e.mu.Unlock()
		return
	}
	before := live.Progress
	live.CompletedLessons = enrollment.MergeLessons(live.CompletedLessons, lessons, updated.CompletedLessons)
	live.Progress = enrollment.NextProgress(live.Progress, updated.Progress)
	live.LastAccessedAt = &now
	if live.IsComplete() && live.CompletedAt == nil {
		live.CompletedAt = &now
	}
	count := len(live.CompletedLessons)
	after := live.Progress
	liveID := live.ID
	e.mu.Unlock()

	e.publish(shared.NewLessonCompletedEvent(userID, courseID, lessonID, count, after))
	if after == 100 && before < 100 {
		e.publish(shared.NewCourseCompletedEvent(userID, courseID, liveID))
	}
}
