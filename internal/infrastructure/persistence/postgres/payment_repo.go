package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
)

const paymentColumns = `
	id::text, user_id, course_id, amount::text, platform_fee::text,
	instructor_earnings::text, status, payment_method, transaction_id, created_at`

// PaymentRepository implements engine.PaymentStore.
type PaymentRepository struct {
	conn *Connection
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(conn *Connection) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

// Create records a settled payment under its own identity, so the row's id
// and transaction_id match the ones the caller already handed out.
func (r *PaymentRepository) Create(ctx context.Context, p payment.Payment) (normalize.RawPayment, error) {
	query := `
		INSERT INTO payments (
			id, user_id, course_id, amount, platform_fee, instructor_earnings,
			status, payment_method, transaction_id, created_at
		) VALUES ($1::uuid, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10)
		RETURNING ` + paymentColumns

	fee, earnings := p.PlatformFee, p.InstructorEarnings
	if fee.IsZero() && earnings.IsZero() {
		fee, earnings = payment.Split(p.Amount)
	}
	status := p.Status
	if status == "" {
		status = payment.StatusCompleted
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var raw normalize.RawPayment
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		var scanErr error
		raw, scanErr = scanPayment(q.QueryRow(ctx, query,
			p.ID,
			p.UserID,
			p.CourseID,
			moneyArg(p.Amount),
			moneyArg(fee),
			moneyArg(earnings),
			string(status),
			p.Method,
			p.TransactionID,
			createdAt,
		))
		return scanErr
	})
	if err != nil {
		return normalize.RawPayment{}, fmt.Errorf("create payment %s: %w", p.TransactionID, err)
	}
	return raw, nil
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]normalize.RawPayment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var out []normalize.RawPayment
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			raw, err := scanPayment(rows)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func scanPayment(row pgx.Row) (normalize.RawPayment, error) {
	var (
		raw                   normalize.RawPayment
		amount, fee, earnings *string
	)

	err := row.Scan(
		&raw.ID,
		&raw.UserID,
		&raw.CourseID,
		&amount,
		&fee,
		&earnings,
		&raw.Status,
		&raw.Method,
		&raw.TransactionID,
		&raw.CreatedAt,
	)
	if err != nil {
		return normalize.RawPayment{}, err
	}

	if raw.Amount, err = parseMoney(amount); err != nil {
		return normalize.RawPayment{}, err
	}
	if raw.PlatformFee, err = parseMoney(fee); err != nil {
		return normalize.RawPayment{}, err
	}
	if raw.InstructorEarnings, err = parseMoney(earnings); err != nil {
		return normalize.RawPayment{}, err
	}
	return raw, nil
}
