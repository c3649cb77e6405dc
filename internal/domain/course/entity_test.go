package course

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestModerationTransitions(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := &Course{ID: "c1", IsDraft: true}
	assert.Equal(t, StateDraft, c.Moderation())

	c.SubmitForReview(now)
	assert.False(t, c.IsPublished)
	assert.False(t, c.IsDraft)
	assert.False(t, c.IsApproved)
	assert.Equal(t, StatePendingApproval, c.Moderation())

	c.Reject("missing syllabus", now)
	assert.Equal(t, StateRejected, c.Moderation())
	assert.Equal(t, "missing syllabus", c.RejectionReason)
	assert.False(t, c.IsListed())

	c.Approve(now)
	assert.Equal(t, StatePublished, c.Moderation())
	assert.Empty(t, c.RejectionReason)
	assert.True(t, c.IsListed())
	assert.Equal(t, now, c.UpdatedAt)
}

func TestResubmittingRejectedCourseIsPending(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := &Course{ID: "c1"}
	c.Reject("missing syllabus", now)
	assert.Equal(t, StateRejected, c.Moderation())

	c.SubmitForReview(now)
	assert.Empty(t, c.RejectionReason)
	assert.Equal(t, StatePendingApproval, c.Moderation())
}

func TestPublishUnpublishesApprovedCourse(t *testing.T) {
	c := &Course{ID: "c1", IsPublished: true, IsApproved: true}
	c.SubmitForReview(time.Now())

	assert.False(t, c.IsPublished)
	assert.False(t, c.IsApproved)
	assert.Equal(t, StatePendingApproval, c.Moderation())
}

func TestRecordEnrollment(t *testing.T) {
	c := &Course{ID: "c1", TotalStudents: 3, Revenue: decimal.NewFromInt(300)}
	c.RecordEnrollment(decimal.NewFromInt(100))

	assert.Equal(t, 4, c.TotalStudents)
	assert.True(t, c.Revenue.Equal(decimal.NewFromInt(400)))
}

func TestCart(t *testing.T) {
	var cart Cart
	a := Course{ID: "a", Price: decimal.NewFromInt(10)}
	b := Course{ID: "b", Price: decimal.RequireFromString("15.50")}

	assert.True(t, cart.Add(a))
	assert.False(t, cart.Add(a), "duplicate course id must be ignored")
	assert.True(t, cart.Add(b))
	assert.Equal(t, 2, cart.Len())
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("25.50")))

	cart.Remove("a")
	cart.Remove("a")
	assert.False(t, cart.Contains("a"))
	assert.Equal(t, []CartItem{{CourseID: "b", Course: b}}, cart.Items())

	cart.Clear()
	assert.Zero(t, cart.Len())
}
