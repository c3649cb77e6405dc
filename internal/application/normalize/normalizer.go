// Package normalize maps raw collaborator records into domain values and
// fills in the documented defaults for missing fields.
package normalize

import (
	"time"

	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Defaults applied to course records.
const (
	DefaultThumbnail      = "https://placehold.co/600x400?text=Course"
	DefaultLevel          = "Beginner"
	DefaultLanguage       = "English"
	DefaultCategory       = "General"
	DefaultDuration       = "0h"
	DefaultInstructorName = "Unknown Instructor"
)

// Normalizer converts raw records. It is stateless apart from its clock.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer. A nil clock falls back to time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course maps a directory record. Only a missing ID is an error.
func (n *Normalizer) Course(raw RawCourse) (*course.Course, error) {
	if raw.ID == "" {
		return nil, invalid("course", "Course")
	}

	now := n.now().UTC()
	return &course.Course{
		ID:              raw.ID,
		Title:           str(raw.Title, ""),
		Description:     str(raw.Description, ""),
		Category:        str(raw.Category, DefaultCategory),
		InstructorID:    str(raw.InstructorID, ""),
		InstructorName:  str(raw.InstructorName, DefaultInstructorName),
		Thumbnail:       str(raw.Thumbnail, DefaultThumbnail),
		Price:           dec(raw.Price),
		Level:           str(raw.Level, DefaultLevel),
		Language:        str(raw.Language, DefaultLanguage),
		Duration:        str(raw.Duration, DefaultDuration),
		Rating:          num(raw.Rating),
		TotalLessons:    nonNegative(raw.TotalLessons),
		TotalStudents:   nonNegative(raw.TotalStudents),
		Revenue:         dec(raw.Revenue),
		HasCertificate:  flag(raw.HasCertificate),
		IsDraft:         flag(raw.IsDraft),
		IsPublished:     flag(raw.IsPublished),
		IsApproved:      flag(raw.IsApproved),
		RejectionReason: str(raw.RejectionReason, ""),
		CreatedAt:       ts(raw.CreatedAt, now),
		UpdatedAt:       ts(raw.UpdatedAt, ts(raw.CreatedAt, now)),
	}, nil
}

// Courses maps a batch, skipping records that cannot be normalized.
func (n *Normalizer) Courses(raws []RawCourse) []*course.Course {
	out := make([]*course.Course, 0, len(raws))
	for _, r := range raws {
		if c, err := n.Course(r); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment maps an enrollment record, clamping progress to [0, 100]
// and deduplicating the lesson set.
func (n *Normalizer) Enrollment(raw RawEnrollment) (*enrollment.Enrollment, error) {
	if raw.ID == "" {
		return nil, invalid("enrollment", "Enrollment")
	}

	progress := 0
	if raw.Progress != nil {
		progress = clamp(*raw.Progress, 0, 100)
	}

	return &enrollment.Enrollment{
		ID:                raw.ID,
		UserID:            raw.UserID,
		CourseID:          raw.CourseID,
		Progress:          progress,
		CompletedLessons:  enrollment.DedupeLessons(raw.CompletedLessons),
		CertificateIssued: flag(raw.CertificateIssued),
		CertificateID:     str(raw.CertificateID, ""),
		PaymentID:         str(raw.PaymentID, ""),
		AmountPaid:        dec(raw.AmountPaid),
		EnrolledAt:        ts(raw.EnrolledAt, n.now().UTC()),
		LastAccessedAt:    raw.LastAccessedAt,
		CompletedAt:       raw.CompletedAt,
	}, nil
}

// Enrollments maps a batch, skipping records that cannot be normalized.
func (n *Normalizer) Enrollments(raws []RawEnrollment) []*enrollment.Enrollment {
	out := make([]*enrollment.Enrollment, 0, len(raws))
	for _, r := range raws {
		if e, err := n.Enrollment(r); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE
// ══════════════════════════════════════════════════════════════════════════════

// Certificate maps a certificate record. IssuedAt falls back to the
// completion date, then to now.
func (n *Normalizer) Certificate(raw RawCertificate) (*certificate.Certificate, error) {
	if raw.ID == "" {
		return nil, invalid("certificate", "Certificate")
	}

	completion := ts(raw.CompletionDate, n.now().UTC())
	return &certificate.Certificate{
		ID:               raw.ID,
		UserID:           raw.UserID,
		CourseID:         raw.CourseID,
		CourseName:       str(raw.CourseName, ""),
		InstructorName:   str(raw.InstructorName, DefaultInstructorName),
		VerificationCode: raw.VerificationCode,
		Grade:            str(raw.Grade, certificate.DefaultGrade),
		IssuedAt:         ts(raw.IssuedAt, completion),
		CompletionDate:   completion,
	}, nil
}

// Certificates maps a batch, skipping records that cannot be normalized.
func (n *Normalizer) Certificates(raws []RawCertificate) []*certificate.Certificate {
	out := make([]*certificate.Certificate, 0, len(raws))
	for _, r := range raws {
		if c, err := n.Certificate(r); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT
// ══════════════════════════════════════════════════════════════════════════════

// Payment maps a payment record. Unknown statuses become pending and a
// missing split is recomputed from the amount.
func (n *Normalizer) Payment(raw RawPayment) (*payment.Payment, error) {
	if raw.ID == "" {
		return nil, invalid("payment", "Payment")
	}

	amount := dec(raw.Amount)
	fee, earnings := payment.Split(amount)
	if raw.PlatformFee != nil {
		fee = *raw.PlatformFee
	}
	if raw.InstructorEarnings != nil {
		earnings = *raw.InstructorEarnings
	}

	return &payment.Payment{
		ID:                 raw.ID,
		UserID:             raw.UserID,
		CourseID:           raw.CourseID,
		Amount:             amount,
		PlatformFee:        fee,
		InstructorEarnings: earnings,
		Status:             payment.ParseStatus(str(raw.Status, "")),
		Method:             str(raw.Method, ""),
		TransactionID:      str(raw.TransactionID, ""),
		CreatedAt:          ts(raw.CreatedAt, n.now().UTC()),
	}, nil
}

// Payments maps a batch, skipping records that cannot be normalized.
func (n *Normalizer) Payments(raws []RawPayment) []*payment.Payment {
	out := make([]*payment.Payment, 0, len(raws))
	for _, r := range raws {
		if p, err := n.Payment(r); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func invalid(domain, op string) error {
	return shared.NewDomainError(domain, op, shared.ErrInvalidEntity, "record has no id")
}

func str(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func dec(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func nonNegative(p *int) int {
	if p == nil || *p < 0 {
		return 0
	}
	return *p
}

func flag(p *bool) bool {
	return p != nil && *p
}

func ts(p *time.Time, def time.Time) time.Time {
	if p == nil || p.IsZero() {
		return def
	}
	return *p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
