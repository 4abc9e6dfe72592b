package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/core/discount"
	"github.com/inchambers/commerce/payment"
	"github.com/inchambers/commerce/validate"
)

func HandlePlace(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var no NewOrder
		if err := web.Decode(w, r, &no); err != nil {
			return weberr.Exposed(err, http.StatusBadRequest)
		}

		pr, err := svc.PlaceOrder(ctx, clm, no)
		if err != nil {
			return webError(err)
		}

		return web.Respond(ctx, w, pr, http.StatusCreated)
	}
}

func HandleRetryPayment(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		pr, err := svc.AttemptPayment(ctx, clm, id)
		if err != nil {
			return webError(err)
		}

		return web.Respond(ctx, w, pr, http.StatusOK)
	}
}

func HandleConfirmPayment(svc *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(fmt.Errorf("passed id is not valid: %w", err))
		}

		if err := svc.ConfirmPayment(ctx, clm, id); err != nil {
			return webError(err)
		}

		resp := struct {
			Message string `json:"message"`
		}{"Payment completed successfully."}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func webError(err error) error {
	var ue *payment.UpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		return weberr.Exposed(err, http.StatusNotFound)
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrPaymentIncomplete):
		return weberr.Exposed(err, http.StatusBadRequest)
	case errors.Is(err, ErrPersistence):
		return weberr.NewError(err, ErrPersistence.Error(), http.StatusInternalServerError)
	case errors.As(err, &ue):
		msg := "the payment provider could not process the request"
		if ue.Message != "" {
			msg = ue.Message
		}
		return weberr.NewError(err, msg, http.StatusBadGateway)
	}
	return discount.WebError(err)
}
