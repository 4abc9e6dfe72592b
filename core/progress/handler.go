package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/core/entitlement"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func HandleShowCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		uc, err := CourseProgress(ctx, db, clm, web.Param(r, "course_id"))
		if err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, uc, http.StatusOK)
	}
}

func HandleUpdateCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.Exposed(err, http.StatusBadRequest)
		}

		courseID := web.Param(r, "course_id")
		if err := ReportCourse(ctx, db, clm, courseID, decimal.NewFromFloat(*up.Progress), time.Now().UTC()); err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCompleteCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := CompleteCourse(ctx, db, clm, web.Param(r, "course_id"), time.Now().UTC()); err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleListSeries(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		rows, err := SeriesProgress(ctx, db, clm, web.Param(r, "series_id"))
		if err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, rows, http.StatusOK)
	}
}

func HandleShowSeriesCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		row, err := OpenSeriesCourse(ctx, db, clm, web.Param(r, "series_id"), web.Param(r, "course_id"))
		if err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, row, http.StatusOK)
	}
}

func HandleUpdateSeriesCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.Exposed(err, http.StatusBadRequest)
		}

		seriesID, courseID := web.Param(r, "series_id"), web.Param(r, "course_id")
		err = ReportSeriesCourse(ctx, db, clm, seriesID, courseID, decimal.NewFromFloat(*up.Progress), time.Now().UTC())
		if err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCompleteSeriesCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		seriesID, courseID := web.Param(r, "series_id"), web.Param(r, "course_id")
		if err := CompleteSeriesCourse(ctx, db, clm, seriesID, courseID, time.Now().UTC()); err != nil {
			return webError(w, r, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// webError maps gate failures. A locked course redirects to the one that
// has to be completed first.
func webError(w http.ResponseWriter, r *http.Request, err error) error {
	var le *LockedError
	switch {
	case errors.As(err, &le):
		loc := fmt.Sprintf("/series/%s/courses/%s/progress", web.Param(r, "series_id"), le.Previous)
		w.Header().Set("Location", loc)
		return weberr.Exposed(err, http.StatusSeeOther)
	case errors.Is(err, entitlement.ErrNotEntitled):
		return weberr.Forbidden(err)
	case errors.Is(err, ErrNotInSeries):
		return weberr.NotFound(err)
	}
	return err
}
