// Package enrollment contains the learner's enrollment in a course and the
// lesson-progress rules that apply to it.
package enrollment

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Key identifies an enrollment by its natural composite key.
type Key struct {
	UserID   string
	CourseID string
}

// String renders the key for logs and in-flight maps.
func (k Key) String() string {
	return k.UserID + "|" + k.CourseID
}

// Enrollment is a paid enrollment of one user in one course.
type Enrollment struct {
	ID       string
	UserID   string
	CourseID string

	// Progress is a percentage in [0, 100] and never decreases.
	Progress int

	// CompletedLessons is an ordered set of lesson IDs.
	CompletedLessons []string

	CertificateIssued bool
	CertificateID     string

	PaymentID  string
	AmountPaid decimal.Decimal

	EnrolledAt     time.Time
	LastAccessedAt *time.Time
	CompletedAt    *time.Time
}

// Key returns the composite key of the enrollment.
func (e *Enrollment) Key() Key {
	return Key{UserID: e.UserID, CourseID: e.CourseID}
}

// Matches reports whether the enrollment belongs to (userID, courseID).
func (e *Enrollment) Matches(userID, courseID string) bool {
	return e.UserID == userID && e.CourseID == courseID
}

// HasCompletedLesson reports whether lessonID is already in the completed set.
func (e *Enrollment) HasCompletedLesson(lessonID string) bool {
	for _, id := range e.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// WithLesson returns the completed-lesson set with lessonID added.
// The receiver is not modified; the second result is false if the lesson
// was already present.
func (e *Enrollment) WithLesson(lessonID string) ([]string, bool) {
	if e.HasCompletedLesson(lessonID) {
		return e.CompletedLessons, false
	}
	out := make([]string, 0, len(e.CompletedLessons)+1)
	out = append(out, e.CompletedLessons...)
	out = append(out, lessonID)
	return out, true
}

// IsComplete reports whether all lessons are done.
func (e *Enrollment) IsComplete() bool {
	return e.Progress >= 100
}

// MarkCertificateIssued links the certificate to the enrollment.
func (e *Enrollment) MarkCertificateIssued(certificateID string) {
	e.CertificateIssued = true
	e.CertificateID = certificateID
}

// Clone returns a deep copy safe to hand out of the engine.
func (e *Enrollment) Clone() *Enrollment {
	if e == nil {
		return nil
	}
	cp := *e
	cp.CompletedLessons = append([]string(nil), e.CompletedLessons...)
	if e.LastAccessedAt != nil {
		t := *e.LastAccessedAt
		cp.LastAccessedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// CalculateProgress returns round(completed / totalLessons * 100) clamped to
// [0, 100]. A non-positive totalLessons yields 0.
func CalculateProgress(completed, totalLessons int) int {
	if totalLessons <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(totalLessons) * 100))
	if p > 100 {
		return 100
	}
	return p
}

// NextProgress applies the monotonic rule: progress never goes below current.
func NextProgress(current, computed int) int {
	if computed < current {
		return current
	}
	return computed
}

// DedupeLessons removes empty and repeated lesson IDs, keeping first occurrence order.
func DedupeLessons(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MergeLessons returns the union of the lesson sets in first-seen order.
func MergeLessons(sets ...[]string) []string {
	var all []string
	for _, s := range sets {
		all = append(all, s...)
	}
	return DedupeLessons(all)
}
