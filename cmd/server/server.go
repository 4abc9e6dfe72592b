package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/inchambers/commerce/api"
	"github.com/inchambers/commerce/config"
	"github.com/inchambers/commerce/database"
	"github.com/inchambers/commerce/payment"
	"github.com/inchambers/commerce/payment/paypal"
	"github.com/inchambers/commerce/payment/paystack"
	"github.com/inchambers/commerce/payment/stripe"
	"github.com/inchambers/commerce/rate"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "COMMERCE"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if out, err := conf.String(&cfg); err == nil {
		logger.Infof("config:\n%s", out)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate the database: %w", err)
	}

	gw, err := gateway(cfg)
	if err != nil {
		return err
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Web.SessionLifetime

	limiter := rate.NewLimiter(rate.Config{
		Burst:    cfg.RateLimit.Burst,
		Interval: cfg.RateLimit.Interval,
		Expiry:   cfg.RateLimit.Expiry,
	})
	defer limiter.Stop()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:     cfg.Cors.Origin,
		Log:            logger,
		DB:             db,
		Session:        sessionManager,
		Gateway:        gw,
		GatewayTimeout: cfg.Payment.Timeout,
		Limiter:        limiter,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}

func gateway(cfg config.Config) (payment.Gateway, error) {
	pc := cfg.Payment

	switch pc.Provider {
	case "paystack":
		return paystack.New(cfg.Paystack, pc.Currency, pc.Timeout), nil

	case "stripe":
		return stripe.New(cfg.Stripe, pc.Currency, pc.Timeout), nil

	case "paypal":
		pp, err := paypal.New(cfg.Paypal, pc.Currency, pc.Timeout)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), pc.Timeout)
		defer cancel()

		if err := pp.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
		return pp, nil
	}

	return nil, fmt.Errorf("unknown payment provider %q", pc.Provider)
}
