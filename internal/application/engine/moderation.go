package engine

import (
	"context"
	"strings"
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// PublishCourse submits the course for review.
//
// NOTE: the flag semantics are the historical ones: isPublished, isDraft and
// isApproved are all cleared, which leaves the course pending approval and
// unlisted. See course.Course.SubmitForReview.
func (e *Engine) PublishCourse(ctx context.Context, courseID string) (*course.Course, error) {
	return e.moderate(ctx, "Publish", courseID, func(c *course.Course, now time.Time) {
		c.SubmitForReview(now)
	})
}

// ApproveCourse approves and publishes the course.
func (e *Engine) ApproveCourse(ctx context.Context, courseID string) (*course.Course, error) {
	return e.moderate(ctx, "Approve", courseID, func(c *course.Course, now time.Time) {
		c.Approve(now)
	})
}

// RejectCourse unpublishes the course and records the reason. A blank
// reason fails with ErrRejectionReasonRequired and changes nothing.
func (e *Engine) RejectCourse(ctx context.Context, courseID, reason string) (*course.Course, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.ErrRejectionReasonRequired
	}
	return e.moderate(ctx, "Reject", courseID, func(c *course.Course, now time.Time) {
		c.Reject(reason, now)
	})
}

// moderate applies a transition. With a ModerationStore configured the new
// flags are persisted first and local state changes only on success.
func (e *Engine) moderate(ctx context.Context, op, courseID string, apply func(*course.Course, time.Time)) (*course.Course, error) {
	now := e.now().UTC()

	e.mu.RLock()
	draft := e.findCourse(courseID).Clone()
	e.mu.RUnlock()
	if draft == nil {
		return nil, shared.ErrCourseNotFound
	}

	apply(draft, now)

	if e.deps.Moderation != nil {
		if err := e.deps.Moderation.UpdateModeration(ctx, courseID, moderationOf(draft)); err != nil {
			e.logger.Error("failed to persist moderation",
				"course_id", courseID,
				"op", op,
				"error", err,
			)
			return nil, shared.WrapError("course", op, shared.ErrPersistence, "failed to persist moderation", err)
		}
	}

	e.mu.Lock()
	live := e.findCourse(courseID)
	if live == nil {
		e.mu.Unlock()
		return nil, shared.ErrCourseNotFound
	}
	apply(live, now)
	out := live.Clone()
	e.mu.Unlock()

	e.logger.Info("course moderated",
		"course_id", courseID,
		"op", op,
		"state", out.Moderation(),
	)

	e.publish(shared.NewCourseModeratedEvent(courseID, out.Moderation().String(), out.RejectionReason))

	return out, nil
}
