package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/core/entitlement"
	"github.com/inchambers/commerce/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func CourseProgress(ctx context.Context, db sqlx.QueryerContext, clm claims.Claims, courseID string) (entitlement.UserCourse, error) {
	return entitlement.FetchUserCourse(ctx, db, clm.UserID, courseID)
}

// ReportCourse stores how far the caller is through a standalone course.
// It never completes the course.
func ReportCourse(ctx context.Context, db sqlx.ExecerContext, clm claims.Claims, courseID string, value decimal.Decimal, now time.Time) error {
	if err := updateCourse(ctx, db, clm.UserID, courseID, value, now); err != nil {
		return fmt.Errorf("reporting course[%s]: %w", courseID, err)
	}
	return nil
}

func CompleteCourse(ctx context.Context, db sqlx.ExecerContext, clm claims.Claims, courseID string, now time.Time) error {
	if err := completeCourse(ctx, db, clm.UserID, courseID, now); err != nil {
		return fmt.Errorf("completing course[%s]: %w", courseID, err)
	}
	return nil
}

// SeriesProgress lists the caller's rows in a series with their state.
func SeriesProgress(ctx context.Context, db sqlx.QueryerContext, clm claims.Claims, seriesID string) ([]Row, error) {
	us, err := entitlement.FetchUserSeries(ctx, db, clm.UserID, seriesID)
	if err != nil {
		return nil, err
	}

	sp, err := entitlement.FetchSeriesProgress(ctx, db, us.ID)
	if err != nil {
		return nil, err
	}
	return Rows(sp), nil
}

// OpenSeriesCourse returns the caller's row of a series course, failing
// with ErrPreviousIncomplete while the course is locked.
func OpenSeriesCourse(ctx context.Context, db sqlx.QueryerContext, clm claims.Claims, seriesID, courseID string) (Row, error) {
	us, err := entitlement.FetchUserSeries(ctx, db, clm.UserID, seriesID)
	if err != nil {
		return Row{}, err
	}

	sp, err := entitlement.FetchSeriesProgress(ctx, db, us.ID)
	if err != nil {
		return Row{}, err
	}
	return Gate(sp, courseID)
}

// ReportSeriesCourse stores progress on an unlocked series course. It
// never completes the course.
func ReportSeriesCourse(ctx context.Context, db *sqlx.DB, clm claims.Claims, seriesID, courseID string, value decimal.Decimal, now time.Time) error {
	return database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		memberID, err := openLocked(ctx, tx, clm.UserID, seriesID, courseID)
		if err != nil {
			return err
		}

		if err := updateSeriesCourse(ctx, tx, memberID, courseID, value, now); err != nil {
			return fmt.Errorf("reporting course[%s] of series[%s]: %w", courseID, seriesID, err)
		}
		return nil
	})
}

// CompleteSeriesCourse completes an unlocked series course and, once
// every course is completed, the membership itself.
func CompleteSeriesCourse(ctx context.Context, db *sqlx.DB, clm claims.Claims, seriesID, courseID string, now time.Time) error {
	return database.Transaction(ctx, db, func(tx sqlx.ExtContext) error {
		memberID, err := openLocked(ctx, tx, clm.UserID, seriesID, courseID)
		if err != nil {
			return err
		}

		if err := completeSeriesCourse(ctx, tx, memberID, courseID, now); err != nil {
			return fmt.Errorf("completing course[%s] of series[%s]: %w", courseID, seriesID, err)
		}

		return completeMembership(ctx, tx, memberID, now)
	})
}

func openLocked(ctx context.Context, tx sqlx.ExtContext, userID, seriesID, courseID string) (string, error) {
	us, err := entitlement.FetchUserSeries(ctx, tx, userID, seriesID)
	if err != nil {
		return "", err
	}

	sp, err := lockSeriesProgress(ctx, tx, us.ID)
	if err != nil {
		return "", err
	}

	if _, err := Gate(sp, courseID); err != nil {
		return "", err
	}
	return us.ID, nil
}
