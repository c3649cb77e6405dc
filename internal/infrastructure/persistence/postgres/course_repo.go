package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/learnhub/learnhub-engine/internal/application/engine"
	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// CourseRepository reads the course catalog straight from the database and
// writes moderation flags back. It implements engine.CourseDirectory and
// engine.ModerationStore.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// ListPublishedCourses returns published and approved courses with the
// instructor's display name joined in.
func (r *CourseRepository) ListPublishedCourses(ctx context.Context) ([]normalize.RawCourse, error) {
	query := `
		SELECT c.id::text, c.title, c.description, c.category, c.instructor_id::text,
			   p.full_name, c.thumbnail, c.price::text, c.level, c.language, c.duration,
			   c.rating, c.total_lessons, c.total_students, c.revenue::text,
			   c.has_certificate, c.is_draft, c.is_published, c.is_approved,
			   c.rejection_reason, c.created_at, c.updated_at
		FROM courses c
		LEFT JOIN profiles p ON p.id = c.instructor_id
		WHERE c.is_published AND c.is_approved
		ORDER BY c.created_at DESC`

	var out []normalize.RawCourse
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			raw, err := scanCourse(rows)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}
	return out, nil
}

// UpdateModeration writes the moderation flags of one course.
func (r *CourseRepository) UpdateModeration(ctx context.Context, courseID string, update engine.ModerationUpdate) error {
	query := `
		UPDATE courses SET
			is_draft = $2,
			is_published = $3,
			is_approved = $4,
			rejection_reason = $5,
			updated_at = $6
		WHERE id = $1`

	var affected int64
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		tag, err := q.Exec(ctx, query,
			courseID,
			update.IsDraft,
			update.IsPublished,
			update.IsApproved,
			nullString(update.RejectionReason),
			update.UpdatedAt,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update course moderation: %w", err)
	}
	if affected == 0 {
		return shared.ErrCourseNotFound
	}
	return nil
}

func scanCourse(row pgx.Row) (normalize.RawCourse, error) {
	var (
		raw            normalize.RawCourse
		price, revenue *string
	)

	err := row.Scan(
		&raw.ID,
		&raw.Title,
		&raw.Description,
		&raw.Category,
		&raw.InstructorID,
		&raw.InstructorName,
		&raw.Thumbnail,
		&price,
		&raw.Level,
		&raw.Language,
		&raw.Duration,
		&raw.Rating,
		&raw.TotalLessons,
		&raw.TotalStudents,
		&revenue,
		&raw.HasCertificate,
		&raw.IsDraft,
		&raw.IsPublished,
		&raw.IsApproved,
		&raw.RejectionReason,
		&raw.CreatedAt,
		&raw.UpdatedAt,
	)
	if err != nil {
		return normalize.RawCourse{}, err
	}

	if raw.Price, err = parseMoney(price); err != nil {
		return normalize.RawCourse{}, err
	}
	if raw.Revenue, err = parseMoney(revenue); err != nil {
		return normalize.RawCourse{}, err
	}
	return raw, nil
}
