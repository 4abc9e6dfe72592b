package config

import "time"

type Config struct {
	Web       Web
	Cors      Cors
	DB        DB
	Payment   Payment
	Paystack  Paystack
	Paypal    Paypal
	Stripe    Stripe
	RateLimit RateLimit
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:30s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
	SessionLifetime time.Duration `conf:"default:24h"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:commerce"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
}

// Payment selects the gateway adapter and bounds every call to it.
type Payment struct {
	Provider string        `conf:"default:paystack,help:one of paystack|stripe|paypal"`
	Timeout  time.Duration `conf:"default:15s"`
	Currency string        `conf:"default:NGN"`
}

type Paystack struct {
	URL       string `conf:"default:https://api.paystack.co"`
	SecretKey string `conf:"mask"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
}

type Stripe struct {
	APISecret string `conf:"mask"`
	CancelURL string
	URL       string
}

// RateLimit bounds order placement and payment confirmation per caller.
type RateLimit struct {
	Burst    int           `conf:"default:5"`
	Interval time.Duration `conf:"default:2s"`
	Expiry   time.Duration `conf:"default:10m"`
}
