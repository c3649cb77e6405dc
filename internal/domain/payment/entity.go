// Package payment contains the payment record and the platform/instructor
// revenue split.
package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the settlement status of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// ParseStatus maps a raw value to a Status, falling back to pending.
func ParseStatus(raw string) Status {
	s := Status(raw)
	if !s.IsValid() {
		return StatusPending
	}
	return s
}

// PlatformShare is the fraction of every payment kept by the platform.
var PlatformShare = decimal.NewFromFloat(0.4)

// Payment is a purchase of a course by a user.
type Payment struct {
	ID                 string
	UserID             string
	CourseID           string
	Amount             decimal.Decimal
	PlatformFee        decimal.Decimal
	InstructorEarnings decimal.Decimal
	Status             Status
	Method             string
	TransactionID      string
	CreatedAt          time.Time
}

// IsCompleted reports whether the payment has settled.
func (p *Payment) IsCompleted() bool {
	return p != nil && p.Status == StatusCompleted
}

// Split divides amount into the platform fee and the instructor earnings.
// The fee is rounded to cents and the earnings take the remainder, so
// fee + earnings == amount holds exactly.
func Split(amount decimal.Decimal) (fee, earnings decimal.Decimal) {
	fee = amount.Mul(PlatformShare).Round(2)
	earnings = amount.Sub(fee)
	return fee, earnings
}

// NewTransactionID returns a fresh transaction identity.
func NewTransactionID() string {
	return "TXN-" + uuid.NewString()
}

// NewCompleted builds a settled payment with the revenue split applied.
func NewCompleted(userID, courseID string, amount decimal.Decimal, method string, now time.Time) Payment {
	fee, earnings := Split(amount)
	return Payment{
		ID:                 uuid.NewString(),
		UserID:             userID,
		CourseID:           courseID,
		Amount:             amount,
		PlatformFee:        fee,
		InstructorEarnings: earnings,
		Status:             StatusCompleted,
		Method:             method,
		TransactionID:      NewTransactionID(),
		CreatedAt:          now,
	}
}
