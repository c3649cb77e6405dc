// Package achievement contains the gamification artifacts awarded on
// enrollment and progress milestones.
package achievement

import "time"

// Type identifies an achievement.
type Type string

const (
	TypeFirstEnrollment   Type = "first_enrollment"
	TypeFirstLesson       Type = "first_lesson"
	TypeCourseCompletion  Type = "course_completion"
	TypeCertificateEarned Type = "certificate_earned"
)

var points = map[Type]int{
	TypeFirstEnrollment:   10,
	TypeFirstLesson:       5,
	TypeCourseCompletion:  50,
	TypeCertificateEarned: 25,
}

// Points returns the score awarded for t, or 0 for an unknown type.
func (t Type) Points() int {
	return points[t]
}

// IsValid reports whether t is a known achievement type.
func (t Type) IsValid() bool {
	_, ok := points[t]
	return ok
}

// Achievement is a side artifact; the engine never depends on it.
type Achievement struct {
	UserID   string
	Type     Type
	Points   int
	EarnedAt time.Time
}

// New builds an achievement with its fixed point value.
func New(userID string, t Type, now time.Time) Achievement {
	return Achievement{UserID: userID, Type: t, Points: t.Points(), EarnedAt: now}
}
