package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/learnhub/learnhub-engine/internal/application/engine"
	"github.com/learnhub/learnhub-engine/internal/application/normalize"
)

const certificateColumns = `
	id::text, user_id, course_id, course_name, instructor_name,
	verification_code, grade, issued_at, completion_date`

// CertificateRepository implements engine.CertificateStore.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

// Insert stores the certificate and flags the matching enrollment in the
// same transaction, so a certificate row never exists without its
// enrollment being marked.
func (r *CertificateRepository) Insert(ctx context.Context, rec engine.CertificateRecord) (normalize.RawCertificate, error) {
	insert := `
		INSERT INTO certificates (
			user_id, course_id, course_name, instructor_name,
			verification_code, grade, issued_at, completion_date
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
		RETURNING ` + certificateColumns

	link := `
		UPDATE enrollments
		SET certificate_issued = TRUE, certificate_id = $3
		WHERE user_id = $1 AND course_id = $2`

	var raw normalize.RawCertificate
	err := r.conn.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		raw, err = scanCertificate(tx.QueryRow(ctx, insert,
			rec.UserID,
			rec.CourseID,
			rec.CourseName,
			rec.InstructorName,
			rec.VerificationCode,
			rec.Grade,
			rec.CompletionDate,
		))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, link, rec.UserID, rec.CourseID, raw.ID)
		return err
	})
	if err != nil {
		return normalize.RawCertificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return raw, nil
}

// ListByUser returns the user's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]normalize.RawCertificate, error) {
	query := `SELECT ` + certificateColumns + `
		FROM certificates
		WHERE user_id = $1
		ORDER BY issued_at DESC`

	var out []normalize.RawCertificate
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			raw, err := scanCertificate(rows)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return out, nil
}

func scanCertificate(row pgx.Row) (normalize.RawCertificate, error) {
	var raw normalize.RawCertificate
	err := row.Scan(
		&raw.ID,
		&raw.UserID,
		&raw.CourseID,
		&raw.CourseName,
		&raw.InstructorName,
		&raw.VerificationCode,
		&raw.Grade,
		&raw.IssuedAt,
		&raw.CompletionDate,
	)
	return raw, err
}
