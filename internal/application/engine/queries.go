package engine

import (
	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
)

// Courses returns copies of every loaded course.
func (e *Engine) Courses() []*course.Course {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*course.Course, 0, len(e.courses))
	for _, c := range e.courses {
		out = append(out, c.Clone())
	}
	return out
}

// Course returns a copy of the course or nil.
func (e *Engine) Course(courseID string) *course.Course {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.findCourse(courseID).Clone()
}

// GetEnrolledCourses joins the user's enrollments to loaded courses.
// Enrollments whose course is not loaded are skipped.
func (e *Engine) GetEnrolledCourses(userID string) []*course.Course {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*course.Course
	for _, en := range e.enrollments {
		if en.UserID != userID {
			continue
		}
		if c := e.findCourse(en.CourseID); c != nil {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Enrollments returns the user's enrollments.
func (e *Engine) Enrollments(userID string) []*enrollment.Enrollment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*enrollment.Enrollment
	for _, en := range e.enrollments {
		if en.UserID == userID {
			out = append(out, en.Clone())
		}
	}
	return out
}

// Certificates returns the user's certificates.
func (e *Engine) Certificates(userID string) []*certificate.Certificate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*certificate.Certificate
	for _, c := range e.certificates {
		if c.UserID == userID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Payments returns the user's payments.
func (e *Engine) Payments(userID string) []*payment.Payment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*payment.Payment
	for _, p := range e.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}
