package normalize

import (
	"time"

	"github.com/shopspring/decimal"
)

// ══════════════════════════════════════════════════════════════════════════════
// RAW RECORDS
// ══════════════════════════════════════════════════════════════════════════════
//
// Raw records are what collaborators hand back: every optional field is a
// pointer so "absent" and "zero" can be told apart.

// RawCourse is a course record as returned by the course directory.
type RawCourse struct {
	ID              string           `json:"id"`
	Title           *string          `json:"title,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Category        *string          `json:"category,omitempty"`
	InstructorID    *string          `json:"instructor_id,omitempty"`
	InstructorName  *string          `json:"instructor_name,omitempty"`
	Thumbnail       *string          `json:"thumbnail,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Level           *string          `json:"level,omitempty"`
	Language        *string          `json:"language,omitempty"`
	Duration        *string          `json:"duration,omitempty"`
	Rating          *float64         `json:"rating,omitempty"`
	TotalLessons    *int             `json:"total_lessons,omitempty"`
	TotalStudents   *int             `json:"total_students,omitempty"`
	Revenue         *decimal.Decimal `json:"revenue,omitempty"`
	HasCertificate  *bool            `json:"has_certificate,omitempty"`
	IsDraft         *bool            `json:"is_draft,omitempty"`
	IsPublished     *bool            `json:"is_published,omitempty"`
	IsApproved      *bool            `json:"is_approved,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
}

// RawEnrollment is an enrollment record from the enrollment store.
type RawEnrollment struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	CourseID          string           `json:"course_id"`
	Progress          *int             `json:"progress,omitempty"`
	CompletedLessons  []string         `json:"completed_lessons,omitempty"`
	CertificateIssued *bool            `json:"certificate_issued,omitempty"`
	CertificateID     *string          `json:"certificate_id,omitempty"`
	PaymentID         *string          `json:"payment_id,omitempty"`
	AmountPaid        *decimal.Decimal `json:"amount_paid,omitempty"`
	EnrolledAt        *time.Time       `json:"enrolled_at,omitempty"`
	LastAccessedAt    *time.Time       `json:"last_accessed_at,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// RawCertificate is a certificate record from the certificate store.
type RawCertificate struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	CourseID         string     `json:"course_id"`
	CourseName       *string    `json:"course_name,omitempty"`
	InstructorName   *string    `json:"instructor_name,omitempty"`
	VerificationCode string     `json:"verification_code"`
	Grade            *string    `json:"grade,omitempty"`
	IssuedAt         *time.Time `json:"issued_at,omitempty"`
	CompletionDate   *time.Time `json:"completion_date,omitempty"`
}

// RawPayment is a payment record from the payment store.
type RawPayment struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	CourseID           string           `json:"course_id"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	PlatformFee        *decimal.Decimal `json:"platform_fee,omitempty"`
	InstructorEarnings *decimal.Decimal `json:"instructor_earnings,omitempty"`
	Status             *string          `json:"status,omitempty"`
	Method             *string          `json:"payment_method,omitempty"`
	TransactionID      *string          `json:"transaction_id,omitempty"`
	CreatedAt          *time.Time       `json:"created_at,omitempty"`
}
