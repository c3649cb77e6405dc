package engine

import (
	"context"
	"errors"

	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// EnrollInCourse turns a completed payment into an enrollment.
//
// It fails with ErrCourseNotFound, ErrPaymentNotCompleted or
// ErrAlreadyEnrolled before any remote call. A failing enrollment store
// returns an ErrPersistence error and leaves local state untouched. On
// success the enrollment is appended, the course's student count is bumped,
// the course leaves the cart and an EnrollmentCreatedEvent is published.
//
// Concurrent calls for the same (user, course) share one store call; only
// the caller that ran it gets the enrollment, the others get ErrAlreadyEnrolled.
func (e *Engine) EnrollInCourse(ctx context.Context, courseID, userID string, p payment.Payment) (*enrollment.Enrollment, error) {
	key := enrollment.Key{UserID: userID, CourseID: courseID}.String()

	leader := false
	v, err, _ := e.inflight.Do("enroll|"+key, func() (interface{}, error) {
		leader = true
		return e.enroll(ctx, courseID, userID, p)
	})
	if err != nil {
		return nil, err
	}
	if !leader {
		return nil, shared.ErrAlreadyEnrolled
	}
	return v.(*enrollment.Enrollment), nil
}

func (e *Engine) enroll(ctx context.Context, courseID, userID string, p payment.Payment) (*enrollment.Enrollment, error) {
	e.mu.RLock()
	courseFound := e.findCourse(courseID) != nil
	enrolled := e.findEnrollment(courseID, userID) != nil
	e.mu.RUnlock()

	if !courseFound {
		return nil, shared.ErrCourseNotFound
	}
	if !p.IsCompleted() {
		return nil, shared.ErrPaymentNotCompleted
	}
	if enrolled {
		return nil, shared.ErrAlreadyEnrolled
	}

	raw, err := e.deps.Enrollments.Create(ctx, userID, courseID, p.ID, p.Amount)
	if err != nil {
		e.logger.Error("failed to create enrollment",
			"user_id", userID,
			"course_id", courseID,
			"payment_id", p.ID,
			"error", err,
		)
		if errors.Is(err, shared.ErrAlreadyEnrolled) {
			return nil, shared.ErrAlreadyEnrolled
		}
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrPersistence, "failed to create enrollment", err)
	}

	created, err := e.normalizer.Enrollment(raw)
	if err != nil {
		return nil, shared.WrapError("enrollment", "Enroll", shared.ErrPersistence, "store returned an invalid enrollment", err)
	}
	if created.PaymentID == "" {
		created.PaymentID = p.ID
	}
	if created.AmountPaid.IsZero() {
		created.AmountPaid = p.Amount
	}

	e.mu.Lock()
	if existing := e.findEnrollment(courseID, userID); existing != nil {
		e.mu.Unlock()
		return nil, shared.ErrAlreadyEnrolled
	}
	e.enrollments = append(e.enrollments, created)
	if c := e.findCourse(courseID); c != nil {
		c.RecordEnrollment(created.AmountPaid)
	}
	e.cart.Remove(courseID)
	out := created.Clone()
	e.mu.Unlock()

	e.logger.Info("user enrolled",
		"user_id", userID,
		"course_id", courseID,
		"enrollment_id", out.ID,
	)

	e.publish(shared.NewEnrollmentCreatedEvent(userID, courseID, out.ID, out.PaymentID, out.AmountPaid.String()))

	return out, nil
}

// IsEnrolled reports whether an enrollment exists for (courseID, userID).
func (e *Engine) IsEnrolled(courseID, userID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.findEnrollment(courseID, userID) != nil
}

// GetEnrollment returns a copy of the enrollment or nil.
func (e *Engine) GetEnrollment(courseID, userID string) *enrollment.Enrollment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.findEnrollment(courseID, userID).Clone()
}
