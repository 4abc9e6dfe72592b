package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotEntitled is returned when the caller holds no live access.
var ErrNotEntitled = errors.New("no active access to this content")

// FetchUserCourse returns the unexpired course access of a user.
func FetchUserCourse(ctx context.Context, db sqlx.QueryerContext, userID, courseID string) (UserCourse, error) {
	const q = `
	SELECT user_course_id, user_id, course_id, progress, is_completed, is_expired, created_at, updated_at
	FROM user_courses
	WHERE user_id = $1 AND course_id = $2 AND NOT is_expired`

	var uc UserCourse
	if err := sqlx.GetContext(ctx, db, &uc, q, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserCourse{}, ErrNotEntitled
		}
		return UserCourse{}, fmt.Errorf("selecting course[%s] of user[%s]: %w", courseID, userID, err)
	}
	return uc, nil
}

// FetchUserSeries returns the unexpired membership of a user.
func FetchUserSeries(ctx context.Context, db sqlx.QueryerContext, userID, seriesID string) (UserSeries, error) {
	const q = `
	SELECT user_series_id, user_id, series_id, is_completed, is_expired, created_at, updated_at
	FROM user_series
	WHERE user_id = $1 AND series_id = $2 AND NOT is_expired`

	var us UserSeries
	if err := sqlx.GetContext(ctx, db, &us, q, userID, seriesID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserSeries{}, ErrNotEntitled
		}
		return UserSeries{}, fmt.Errorf("selecting series[%s] of user[%s]: %w", seriesID, userID, err)
	}
	return us, nil
}

// FetchSeriesProgress lists the rows of a membership by position.
func FetchSeriesProgress(ctx context.Context, db sqlx.QueryerContext, memberID string) ([]SeriesProgress, error) {
	const q = `
	SELECT user_series_id, course_id, position, progress, is_completed, created_at, updated_at
	FROM series_progress
	WHERE user_series_id = $1
	ORDER BY position`

	var sp []SeriesProgress
	if err := sqlx.SelectContext(ctx, db, &sp, q, memberID); err != nil {
		return nil, fmt.Errorf("selecting progress of membership[%s]: %w", memberID, err)
	}
	return sp, nil
}
