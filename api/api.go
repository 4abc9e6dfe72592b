package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/inchambers/commerce/api/middleware"
	"github.com/inchambers/commerce/api/web"
	"github.com/inchambers/commerce/api/weberr"
	"github.com/inchambers/commerce/core/auth"
	"github.com/inchambers/commerce/core/discount"
	"github.com/inchambers/commerce/core/order"
	"github.com/inchambers/commerce/core/progress"
	"github.com/inchambers/commerce/database"
	"github.com/inchambers/commerce/payment"
	"github.com/inchambers/commerce/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin     string
	Log            logrus.FieldLogger
	DB             *sqlx.DB
	Session        *scs.SessionManager
	Gateway        payment.Gateway
	GatewayTimeout time.Duration
	Limiter        *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	limit := middleware.RateLimit(cfg.Limiter)

	orders := order.NewService(cfg.DB, cfg.Gateway, cfg.Log, cfg.GatewayTimeout)

	a.Handle(http.MethodGet, "/readiness", handleReadiness(cfg.DB))

	a.Handle(http.MethodGet, "/orders/validate-discount/{code}/{amount}", discount.HandleValidate(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders", order.HandlePlace(orders), authen, limit)
	a.Handle(http.MethodGet, "/orders/{id}/retry-payment", order.HandleRetryPayment(orders), authen)
	a.Handle(http.MethodGet, "/orders/{id}/confirm-payment", order.HandleConfirmPayment(orders), authen, limit)

	a.Handle(http.MethodDelete, "/discounts/{id}", discount.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/courses/{course_id}/progress", progress.HandleShowCourse(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/progress", progress.HandleUpdateCourse(cfg.DB), authen)
	a.Handle(http.MethodPost, "/courses/{course_id}/complete", progress.HandleCompleteCourse(cfg.DB), authen)

	a.Handle(http.MethodGet, "/series/{series_id}/progress", progress.HandleListSeries(cfg.DB), authen)
	a.Handle(http.MethodGet, "/series/{series_id}/courses/{course_id}/progress", progress.HandleShowSeriesCourse(cfg.DB), authen)
	a.Handle(http.MethodPut, "/series/{series_id}/courses/{course_id}/progress", progress.HandleUpdateSeriesCourse(cfg.DB), authen)
	a.Handle(http.MethodPost, "/series/{series_id}/courses/{course_id}/complete", progress.HandleCompleteSeriesCourse(cfg.DB), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleReadiness(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.NewError(err, "database not ready", http.StatusServiceUnavailable)
		}

		status := struct {
			Status string `json:"status"`
		}{"ok"}

		return web.Respond(ctx, w, status, http.StatusOK)
	}
}
