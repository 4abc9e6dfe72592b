package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inchambers/commerce/core/entitlement"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func updateCourse(ctx context.Context, db sqlx.ExecerContext, userID, courseID string, value decimal.Decimal, now time.Time) error {
	const q = `
	UPDATE user_courses SET
		progress = $3,
		updated_at = $4
	WHERE user_id = $1 AND course_id = $2 AND NOT is_expired`

	return affectOne(db.ExecContext(ctx, q, userID, courseID, value, now))
}

func completeCourse(ctx context.Context, db sqlx.ExecerContext, userID, courseID string, now time.Time) error {
	const q = `
	UPDATE user_courses SET
		is_completed = TRUE,
		updated_at = $3
	WHERE user_id = $1 AND course_id = $2 AND NOT is_expired`

	return affectOne(db.ExecContext(ctx, q, userID, courseID, now))
}

// lockSeriesProgress reads the rows of a membership and holds them until
// the transaction ends, so gate checks and writes see the same state.
func lockSeriesProgress(ctx context.Context, tx sqlx.QueryerContext, memberID string) ([]entitlement.SeriesProgress, error) {
	const q = `
	SELECT user_series_id, course_id, position, progress, is_completed, created_at, updated_at
	FROM series_progress
	WHERE user_series_id = $1
	ORDER BY position
	FOR UPDATE`

	var sp []entitlement.SeriesProgress
	if err := sqlx.SelectContext(ctx, tx, &sp, q, memberID); err != nil {
		return nil, fmt.Errorf("locking progress of membership[%s]: %w", memberID, err)
	}
	return sp, nil
}

func updateSeriesCourse(ctx context.Context, tx sqlx.ExecerContext, memberID, courseID string, value decimal.Decimal, now time.Time) error {
	const q = `
	UPDATE series_progress SET
		progress = $3,
		updated_at = $4
	WHERE user_series_id = $1 AND course_id = $2`

	return affectOne(tx.ExecContext(ctx, q, memberID, courseID, value, now))
}

func completeSeriesCourse(ctx context.Context, tx sqlx.ExecerContext, memberID, courseID string, now time.Time) error {
	const q = `
	UPDATE series_progress SET
		is_completed = TRUE,
		updated_at = $3
	WHERE user_series_id = $1 AND course_id = $2`

	return affectOne(tx.ExecContext(ctx, q, memberID, courseID, now))
}

// completeMembership marks the membership completed once none of its
// rows is left incomplete. It recounts every time.
func completeMembership(ctx context.Context, tx sqlx.ExecerContext, memberID string, now time.Time) error {
	const q = `
	UPDATE user_series SET
		is_completed = TRUE,
		updated_at = $2
	WHERE user_series_id = $1
		AND NOT is_completed
		AND NOT EXISTS (
			SELECT 1 FROM series_progress
			WHERE user_series_id = $1 AND NOT is_completed
		)`

	if _, err := tx.ExecContext(ctx, q, memberID, now); err != nil {
		return fmt.Errorf("completing membership[%s]: %w", memberID, err)
	}
	return nil
}

// affectOne turns a write that matched nothing into ErrNotEntitled.
func affectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entitlement.ErrNotEntitled
	}
	return nil
}
