// Package course contains the course catalog model: the Course entity,
// its moderation state machine and the learner's cart.
package course

import (
	"time"

	"github.com/shopspring/decimal"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// ModerationState is the derived moderation status of a course.
type ModerationState string

const (
	// StateDraft - the author is still editing the course.
	StateDraft ModerationState = "draft"
	// StatePendingApproval - submitted and waiting for a moderator.
	StatePendingApproval ModerationState = "pending_approval"
	// StatePublished - approved and visible in the directory.
	StatePublished ModerationState = "published"
	// StateRejected - a moderator rejected the course.
	StateRejected ModerationState = "rejected"
)

// String returns the string representation of the state.
func (s ModerationState) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course is a purchasable course as known to the engine.
type Course struct {
	ID             string
	Title          string
	Description    string
	Category       string
	InstructorID   string
	InstructorName string
	Thumbnail      string
	Price          decimal.Decimal
	Level          string
	Language       string
	Duration       string
	Rating         float64

	// TotalLessons is the denominator of enrollment progress.
	TotalLessons int

	// TotalStudents only increases via a successful enrollment.
	TotalStudents int
	Revenue       decimal.Decimal

	HasCertificate bool

	// Moderation flags. Use the transition methods below to change them.
	IsDraft         bool
	IsPublished     bool
	IsApproved      bool
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Moderation derives the single moderation state from the flags. A
// rejection reason only survives until the next submission or approval, so
// it marks the course rejected whenever the course is not listed.
func (c *Course) Moderation() ModerationState {
	switch {
	case c.IsApproved && c.IsPublished:
		return StatePublished
	case c.RejectionReason != "":
		return StateRejected
	case c.IsDraft:
		return StateDraft
	default:
		return StatePendingApproval
	}
}

// IsListed reports whether the course belongs in the public directory.
func (c *Course) IsListed() bool {
	return c.IsPublished && c.IsApproved
}

// SubmitForReview clears isPublished, isDraft and isApproved. A previous
// rejection reason is dropped, which moves a rejected course back to
// pending approval.
//
// NOTE: this is the historical "publish" behavior. It leaves the course
// unpublished even though the operation is named publish; the flags are
// reproduced literally until product confirms the intended semantics.
func (c *Course) SubmitForReview(now time.Time) {
	c.IsPublished = false
	c.IsDraft = false
	c.IsApproved = false
	c.RejectionReason = ""
	c.UpdatedAt = now
}

// Approve marks the course approved and published and clears any rejection.
func (c *Course) Approve(now time.Time) {
	c.IsApproved = true
	c.IsPublished = true
	c.RejectionReason = ""
	c.UpdatedAt = now
}

// Reject unpublishes the course and stores the reason. Callers must pass a
// non-empty reason; an empty one leaves the course looking pending.
func (c *Course) Reject(reason string, now time.Time) {
	c.IsApproved = false
	c.IsPublished = false
	c.RejectionReason = reason
	c.UpdatedAt = now
}

// RecordEnrollment bumps the derived counters after a paid enrollment.
func (c *Course) RecordEnrollment(amountPaid decimal.Decimal) {
	c.TotalStudents++
	c.Revenue = c.Revenue.Add(amountPaid)
}

// Clone returns a copy safe to hand out of the engine.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
