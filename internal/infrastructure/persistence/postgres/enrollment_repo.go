package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// Table enrollments: unique (user_id, course_id).
// ══════════════════════════════════════════════════════════════════════════════

const enrollmentColumns = `
	id::text, user_id, course_id, progress, completed_lessons,
	certificate_issued, certificate_id, payment_id, amount_paid::text,
	enrolled_at, last_accessed_at, completed_at`

// EnrollmentRepository implements engine.EnrollmentStore.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Create inserts a fresh enrollment at 0% progress. A second enrollment of
// the same user in the same course is reported as shared.ErrAlreadyEnrolled.
func (r *EnrollmentRepository) Create(ctx context.Context, userID, courseID, paymentID string, amountPaid decimal.Decimal) (normalize.RawEnrollment, error) {
	query := `
		INSERT INTO enrollments (user_id, course_id, progress, completed_lessons, payment_id, amount_paid, enrolled_at)
		VALUES ($1, $2, 0, '{}', $3, $4::numeric, NOW())
		RETURNING ` + enrollmentColumns

	var raw normalize.RawEnrollment
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		var scanErr error
		raw, scanErr = scanEnrollment(q.QueryRow(ctx, query, userID, courseID, nullString(paymentID), moneyArg(amountPaid)))
		return scanErr
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return normalize.RawEnrollment{}, shared.ErrAlreadyEnrolled
		}
		return normalize.RawEnrollment{}, fmt.Errorf("create enrollment: %w", err)
	}
	return raw, nil
}

// UpdateProgress writes the lesson set and progress. Progress is kept
// monotonic in SQL too, and completed_at is stamped once.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollmentID string, progress int, completedLessons []string) (normalize.RawEnrollment, error) {
	query := `
		UPDATE enrollments SET
			progress = GREATEST(progress, $2),
			completed_lessons = $3,
			last_accessed_at = NOW(),
			completed_at = CASE
				WHEN $2 >= 100 AND completed_at IS NULL THEN NOW()
				ELSE completed_at
			END
		WHERE id = $1
		RETURNING ` + enrollmentColumns

	if completedLessons == nil {
		completedLessons = []string{}
	}

	var raw normalize.RawEnrollment
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		var scanErr error
		raw, scanErr = scanEnrollment(q.QueryRow(ctx, query, enrollmentID, progress, completedLessons))
		return scanErr
	})
	if err != nil {
		if IsNoRows(err) {
			return normalize.RawEnrollment{}, shared.ErrEnrollmentNotFound
		}
		return normalize.RawEnrollment{}, fmt.Errorf("update enrollment progress: %w", err)
	}
	return raw, nil
}

// ListByUser returns the user's enrollments, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]normalize.RawEnrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1
		ORDER BY enrolled_at DESC`

	var out []normalize.RawEnrollment
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			raw, err := scanEnrollment(rows)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row) (normalize.RawEnrollment, error) {
	var (
		raw        normalize.RawEnrollment
		progress   int
		issued     bool
		amountPaid *string
	)

	err := row.Scan(
		&raw.ID,
		&raw.UserID,
		&raw.CourseID,
		&progress,
		&raw.CompletedLessons,
		&issued,
		&raw.CertificateID,
		&raw.PaymentID,
		&amountPaid,
		&raw.EnrolledAt,
		&raw.LastAccessedAt,
		&raw.CompletedAt,
	)
	if err != nil {
		return normalize.RawEnrollment{}, err
	}

	raw.Progress = &progress
	raw.CertificateIssued = &issued
	if raw.AmountPaid, err = parseMoney(amountPaid); err != nil {
		return normalize.RawEnrollment{}, err
	}
	return raw, nil
}
