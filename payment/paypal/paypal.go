// Package paypal initiates and verifies payments as PayPal checkout
// orders. Verification captures an approved order.
package paypal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/inchambers/commerce/config"
	"github.com/inchambers/commerce/payment"
	"github.com/plutov/paypal/v4"
)

const provider = "paypal"

// PayPal order states this adapter reacts to.
const (
	statusApproved  = "APPROVED"
	statusCompleted = "COMPLETED"
)

type Client struct {
	pp       *paypal.Client
	currency string
}

var _ payment.Gateway = (*Client)(nil)

func New(cfg config.Paypal, currency string, timeout time.Duration) (*Client, error) {
	pp, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to build the paypal client: %w", err)
	}
	pp.SetHTTPClient(&http.Client{Timeout: timeout})

	return &Client{pp: pp, currency: currency}, nil
}

// Authenticate fetches the first access token. The client renews it on
// its own afterwards.
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.pp.GetAccessToken(ctx); err != nil {
		return &payment.UpstreamError{Provider: provider, Op: "authenticate", Err: err}
	}
	return nil
}

func (c *Client) InitiateTransaction(ctx context.Context, tx payment.Transaction) (payment.Initiated, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: tx.Reference,
		Description: tx.Description,

		Amount: &paypal.PurchaseUnitAmount{
			Currency: c.currency,
			Value:    tx.Amount.StringFixed(2),
		},
	}}

	app := &paypal.ApplicationContext{
		ReturnURL: tx.CallbackURL,
		CancelURL: tx.CallbackURL,
	}

	ord, err := c.pp.CreateOrder(ctx, "CAPTURE", units, nil, app)
	if err != nil {
		return payment.Initiated{}, &payment.UpstreamError{Provider: provider, Op: "create order", Err: err}
	}

	var approve string
	for _, l := range ord.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approve = l.Href
			break
		}
	}
	if approve == "" {
		return payment.Initiated{}, &payment.UpstreamError{Provider: provider, Op: "create order", Message: "no approval link returned"}
	}

	return payment.Initiated{
		AuthorizationURL: approve,
		AccessCode:       tx.Reference,
		Reference:        ord.ID,
	}, nil
}

// VerifyTransaction reports success for a completed order and captures
// an approved one. Capturing here is safe to repeat because a completed
// order is reported without a second capture.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (payment.Verification, error) {
	ord, err := c.pp.GetOrder(ctx, reference)
	if err != nil {
		return payment.Verification{}, &payment.UpstreamError{Provider: provider, Op: "get order", Err: err}
	}

	status := ord.Status
	if status == statusApproved {
		resp, err := c.pp.CaptureOrder(ctx, reference, paypal.CaptureOrderRequest{})
		if err != nil {
			return payment.Verification{}, &payment.UpstreamError{Provider: provider, Op: "capture order", Err: err}
		}
		status = resp.Status
	}

	v := payment.Verification{TransactionID: ord.ID, Status: status}
	if status == statusCompleted {
		v.Status = payment.StatusSuccess
	}
	return v, nil
}
