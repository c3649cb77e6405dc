package engine

import (
	"context"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATOR PORTS
// Implemented by infrastructure (postgres, redis, directory HTTP client) and by
// in-memory fakes in tests. Every port returns raw records; the engine owns
// normalization.
// ══════════════════════════════════════════════════════════════════════════════

// CourseDirectory lists the courses visible to learners.
type CourseDirectory interface {
	ListPublishedCourses(ctx context.Context) ([]normalize.RawCourse, error)
}

// EnrollmentStore is the durable owner of enrollments.
type EnrollmentStore interface {
	Create(ctx context.Context, userID, courseID, paymentID string, amountPaid decimal.Decimal) (normalize.RawEnrollment, error)
	UpdateProgress(ctx context.Context, enrollmentID string, progress int, completedLessons []string) (normalize.RawEnrollment, error)
	ListByUser(ctx context.Context, userID string) ([]normalize.RawEnrollment, error)
}

// PaymentStore is the durable owner of payments. Create stores the payment
// under the ID and TransactionID it carries.
type PaymentStore interface {
	Create(ctx context.Context, p payment.Payment) (normalize.RawPayment, error)
	ListByUser(ctx context.Context, userID string) ([]normalize.RawPayment, error)
}

// CertificateRecord is the insert payload for a new certificate.
type CertificateRecord struct {
	UserID           string
	CourseID         string
	CourseName       string
	InstructorName   string
	VerificationCode string
	Grade            string
	CompletionDate   time.Time
}

// CertificateStore is the durable owner of certificates.
type CertificateStore interface {
	Insert(ctx context.Context, rec CertificateRecord) (normalize.RawCertificate, error)
	ListByUser(ctx context.Context, userID string) ([]normalize.RawCertificate, error)
}

// IdentityProvider resolves the authenticated user of the session.
// ok is false when nobody is signed in.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (userID string, ok bool, err error)
}

// ModerationUpdate carries the moderation flags of a course.
type ModerationUpdate struct {
	IsDraft         bool
	IsPublished     bool
	IsApproved      bool
	RejectionReason string
	UpdatedAt       time.Time
}

// ModerationStore persists moderation transitions. Optional.
type ModerationStore interface {
	UpdateModeration(ctx context.Context, courseID string, update ModerationUpdate) error
}

// SequenceSource hands out certificate sequence numbers from a shared
// counter. Optional; without it the local certificate count is used.
type SequenceSource interface {
	NextCertificateSequence(ctx context.Context) (int, error)
}

func moderationOf(c *course.Course) ModerationUpdate {
	return ModerationUpdate{
		IsDraft:         c.IsDraft,
		IsPublished:     c.IsPublished,
		IsApproved:      c.IsApproved,
		RejectionReason: c.RejectionReason,
		UpdatedAt:       c.UpdatedAt,
	}
}
