package postgres

import (
	"context"
	"fmt"

	"github.com/learnhub/learnhub-engine/internal/domain/achievement"
)

// AchievementRepository stores awarded achievements. It satisfies
// eventhandler.AchievementSink.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// Record inserts the achievement. A (user_id, type) pair is awarded once;
// repeats are ignored.
func (r *AchievementRepository) Record(ctx context.Context, a achievement.Achievement) error {
	query := `
		INSERT INTO achievements (user_id, type, points, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, type) DO NOTHING`

	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		_, err := q.Exec(ctx, query, a.UserID, string(a.Type), a.Points, a.EarnedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("record achievement: %w", err)
	}
	return nil
}

// ListByUser returns the user's achievements in award order.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]achievement.Achievement, error) {
	query := `
		SELECT user_id, type, points, earned_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY earned_at`

	var out []achievement.Achievement
	err := r.conn.run(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				a       achievement.Achievement
				rawType string
			)
			if err := rows.Scan(&a.UserID, &rawType, &a.Points, &a.EarnedAt); err != nil {
				return err
			}
			a.Type = achievement.Type(rawType)
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return out, nil
}
