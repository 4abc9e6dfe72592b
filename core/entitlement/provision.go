package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inchambers/commerce/core/catalog"
	"github.com/inchambers/commerce/validate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrNoDuration is returned when a subscription item is granted without
// a billing period.
var ErrNoDuration = errors.New("subscription item granted without a duration")

// Provision grants access for a paid order. It must run in the
// transaction that marks the order paid. A second call for the same
// order finds the existing access row and writes nothing.
func Provision(ctx context.Context, tx sqlx.ExtContext, g Grant, now time.Time) error {
	uc := UserContent{
		ID:        validate.GenerateID(),
		UserID:    g.UserID,
		OrderID:   g.OrderID,
		StartDate: now,
		CreatedAt: now,
	}

	if g.ItemType.Subscription() {
		if g.DurationID == nil {
			return ErrNoDuration
		}
		d, err := catalog.FetchDuration(ctx, tx, *g.DurationID)
		if err != nil {
			return fmt.Errorf("fetching duration of order[%s]: %w", g.OrderID, err)
		}
		end := now.AddDate(0, d.Count, 0)
		uc.EndDate = &end
	}

	created, err := createContent(ctx, tx, uc)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	switch g.ItemType {
	case catalog.Course:
		return upsertCourse(ctx, tx, g.UserID, g.ItemID, now)
	case catalog.Series:
		return provisionSeries(ctx, tx, g.UserID, g.ItemID, now)
	}
	return nil
}

func provisionSeries(ctx context.Context, tx sqlx.ExtContext, userID, seriesID string, now time.Time) error {
	courses, err := catalog.FetchSeriesCourses(ctx, tx, seriesID)
	if err != nil {
		return err
	}

	memberID, err := upsertSeries(ctx, tx, userID, seriesID, now)
	if err != nil {
		return err
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		sp := SeriesProgress{
			UserSeriesID: memberID,
			CourseID:     c.CourseID,
			Position:     i + 1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := upsertSeriesProgress(ctx, tx, sp); err != nil {
			return err
		}
		ids[i] = c.CourseID
	}

	return pruneSeriesProgress(ctx, tx, memberID, ids)
}

// pruneSeriesProgress drops rows of courses that left the series since
// the membership was last provisioned.
func pruneSeriesProgress(ctx context.Context, tx sqlx.ExtContext, memberID string, keep []string) error {
	const q = `
	DELETE FROM series_progress
	WHERE user_series_id = $1 AND course_id <> ALL($2)`

	if _, err := tx.ExecContext(ctx, q, memberID, pq.Array(keep)); err != nil {
		return fmt.Errorf("pruning progress of membership[%s]: %w", memberID, err)
	}
	return nil
}

// createContent reports false when the order already has its access row.
func createContent(ctx context.Context, tx sqlx.ExtContext, uc UserContent) (bool, error) {
	const q = `
	INSERT INTO user_contents (user_content_id, user_id, order_id, start_date, end_date, created_at)
	VALUES (:user_content_id, :user_id, :order_id, :start_date, :end_date, :created_at)
	ON CONFLICT (order_id) DO NOTHING`

	res, err := sqlx.NamedExecContext(ctx, tx, q, uc)
	if err != nil {
		return false, fmt.Errorf("inserting access for order[%s]: %w", uc.OrderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting access for order[%s]: %w", uc.OrderID, err)
	}
	return n == 1, nil
}

func upsertCourse(ctx context.Context, tx sqlx.ExtContext, userID, courseID string, now time.Time) error {
	const q = `
	INSERT INTO user_courses (user_course_id, user_id, course_id, progress, is_completed, is_expired, created_at, updated_at)
	VALUES ($1, $2, $3, 0, FALSE, FALSE, $4, $4)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		progress = 0,
		is_completed = FALSE,
		is_expired = FALSE,
		updated_at = EXCLUDED.updated_at`

	if _, err := tx.ExecContext(ctx, q, validate.GenerateID(), userID, courseID, now); err != nil {
		return fmt.Errorf("upserting course[%s] of user[%s]: %w", courseID, userID, err)
	}
	return nil
}

func upsertSeries(ctx context.Context, tx sqlx.ExtContext, userID, seriesID string, now time.Time) (string, error) {
	const q = `
	INSERT INTO user_series (user_series_id, user_id, series_id, is_completed, is_expired, created_at, updated_at)
	VALUES ($1, $2, $3, FALSE, FALSE, $4, $4)
	ON CONFLICT (user_id, series_id) DO UPDATE SET
		is_completed = FALSE,
		is_expired = FALSE,
		updated_at = EXCLUDED.updated_at
	RETURNING user_series_id`

	var id string
	if err := sqlx.GetContext(ctx, tx, &id, q, validate.GenerateID(), userID, seriesID, now); err != nil {
		return "", fmt.Errorf("upserting series[%s] of user[%s]: %w", seriesID, userID, err)
	}
	return id, nil
}

func upsertSeriesProgress(ctx context.Context, tx sqlx.ExtContext, sp SeriesProgress) error {
	const q = `
	INSERT INTO series_progress (user_series_id, course_id, position, progress, is_completed, created_at, updated_at)
	VALUES (:user_series_id, :course_id, :position, 0, FALSE, :created_at, :updated_at)
	ON CONFLICT (user_series_id, course_id) DO UPDATE SET
		position = EXCLUDED.position,
		progress = 0,
		is_completed = FALSE,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, tx, q, sp); err != nil {
		return fmt.Errorf("upserting progress of course[%s] in membership[%s]: %w", sp.CourseID, sp.UserSeriesID, err)
	}
	return nil
}
