package engine

import (
	"context"

	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ValidatePaymentAmount reports ErrNonPositiveAmount for a zero or negative
// amount. ProcessPayment does not enforce it.
func ValidatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrNonPositiveAmount
	}
	return nil
}

// ProcessPayment settles a payment locally and returns it.
//
// The split is 40% platform fee and 60% instructor earnings, the payment is
// marked completed and appended to the session's payments. The payment
// store is asked to record the same purchase in the background; its outcome
// never reaches the caller. ProcessPayment never fails.
func (e *Engine) ProcessPayment(ctx context.Context, courseID, userID string, amount decimal.Decimal, method string) payment.Payment {
	if err := ValidatePaymentAmount(amount); err != nil {
		e.logger.Warn("processing unvalidated payment amount",
			"user_id", userID,
			"course_id", courseID,
			"amount", amount.String(),
			"error", err,
		)
	}

	p := payment.NewCompleted(userID, courseID, amount, method, e.now().UTC())

	e.mu.Lock()
	stored := p
	e.payments = append(e.payments, &stored)
	e.mu.Unlock()

	e.mirrorPayment(ctx, p)

	e.publish(shared.NewPaymentProcessedEvent(userID, courseID, p.ID, p.TransactionID, amount.String()))

	return p
}

// mirrorPayment records the payment durably without blocking the caller.
func (e *Engine) mirrorPayment(ctx context.Context, p payment.Payment) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.BackgroundTimeout)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		defer cancel()

		if _, err := e.deps.Payments.Create(bg, p); err != nil {
			e.logger.Error("failed to record payment",
				"user_id", p.UserID,
				"course_id", p.CourseID,
				"transaction_id", p.TransactionID,
				"error", err,
			)
		}
	}()
}
