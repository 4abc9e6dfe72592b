// Package stripe initiates and verifies payments through Stripe Checkout.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/inchambers/commerce/config"
	"github.com/inchambers/commerce/payment"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const provider = "stripe"

type Client struct {
	api       *stripecl.API
	currency  string
	cancelURL string
}

var _ payment.Gateway = (*Client)(nil)

func New(cfg config.Stripe, currency string, timeout time.Duration) *Client {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.URL != "" {
		bc.URL = stripe.String(cfg.URL)
	}

	b := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	api := &stripecl.API{}
	api.Init(cfg.APISecret, &stripe.Backends{API: b, Connect: b, Uploads: b})

	return &Client{
		api:       api,
		currency:  strings.ToLower(currency),
		cancelURL: cfg.CancelURL,
	}
}

func (c *Client) InitiateTransaction(ctx context.Context, tx payment.Transaction) (payment.Initiated, error) {
	cancel := c.cancelURL
	if cancel == "" {
		cancel = tx.CallbackURL
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(tx.CallbackURL),
		CancelURL:         stripe.String(cancel),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(tx.Reference),
		CustomerEmail:     stripe.String(tx.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(tx.Amount.Shift(2).Round(0).IntPart()),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(tx.Description),
				},
			},
		}},
	}
	params.Context = ctx
	for k, v := range tx.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return payment.Initiated{}, &payment.UpstreamError{Provider: provider, Op: "create session", Message: stripeMessage(err), Err: err}
	}

	return payment.Initiated{
		AuthorizationURL: s.URL,
		AccessCode:       tx.Reference,
		Reference:        s.ID,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (payment.Verification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.Get(reference, params)
	if err != nil {
		return payment.Verification{}, &payment.UpstreamError{Provider: provider, Op: "get session", Message: stripeMessage(err), Err: err}
	}

	v := payment.Verification{
		TransactionID: s.ID,
		Status:        string(s.PaymentStatus),
	}
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		v.TransactionID = s.PaymentIntent.ID
	}
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		v.Status = payment.StatusSuccess
	}
	return v, nil
}

func stripeMessage(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return ""
}
