package discount

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func HandleValidate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		code := web.Param(r, "code")

		amount, err := decimal.NewFromString(web.Param(r, "amount"))
		if err != nil || amount.IsNegative() {
			err := errors.New("amount must be a non negative number")
			return weberr.Exposed(err, http.StatusBadRequest)
		}

		p, err := Validate(ctx, db, code, amount, time.Now().UTC())
		if err != nil {
			return WebError(err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		if err := Delete(ctx, db, id, clm.UserID, time.Now().UTC()); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting discount[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// WebError maps evaluation failures to responses carrying their message.
func WebError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return weberr.Exposed(err, http.StatusNotFound)
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrBelowMinimum):
		return weberr.Exposed(err, http.StatusBadRequest)
	}
	return err
}
