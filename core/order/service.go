package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/inchambers/commerce/core/catalog"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/core/discount"
	"github.com/inchambers/commerce/core/entitlement"
	"github.com/inchambers/commerce/database"
	"github.com/inchambers/commerce/payment"
	"github.com/inchambers/commerce/random"
	"github.com/inchambers/commerce/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("order not found")
	ErrInvalid  = errors.New("invalid order")

	// ErrPaymentIncomplete is returned when the gateway reports the
	// transaction as anything but settled.
	ErrPaymentIncomplete = errors.New("payment not completed")

	// ErrPersistence is returned when the gateway took the money but the
	// paid order could not be stored.
	ErrPersistence = errors.New("payment acknowledged, however an issue occurred while saving your order details, kindly contact the support team")
)

const referenceLength = 20

type Service struct {
	db      *sqlx.DB
	gateway payment.Gateway
	log     logrus.FieldLogger
	timeout time.Duration
	now     func() time.Time
}

// NewService builds the order service. timeout bounds every gateway call.
func NewService(db *sqlx.DB, gw payment.Gateway, log logrus.FieldLogger, timeout time.Duration) *Service {
	return &Service{
		db:      db,
		gateway: gw,
		log:     log,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder prices the item, applies the discount code, stores the
// order and starts its payment with the gateway.
//
// When the gateway refuses the payment the order is kept, unpaid and
// without handles.
func (s *Service) PlaceOrder(ctx context.Context, clm claims.Claims, no NewOrder) (PaymentRequest, error) {
	now := s.now()

	it, err := NewItem(catalog.ItemType(no.ItemType), strings.TrimSpace(no.ItemUID))
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	durationID := no.DurationID
	if !it.Type().Subscription() {
		durationID = nil
	}

	price, err := catalog.ResolvePrice(ctx, s.db, it.Type(), it.ID(), durationID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return PaymentRequest{}, fmt.Errorf("%w: %s or its duration does not exist", ErrInvalid, strings.ToLower(string(it.Type())))
	case errors.Is(err, catalog.ErrDurationRequired):
		return PaymentRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	case err != nil:
		return PaymentRequest{}, fmt.Errorf("resolving price: %w", err)
	}

	ord := Order{
		ID:             validate.GenerateID(),
		UserID:         clm.UserID,
		Item:           it,
		DurationID:     durationID,
		BillingAddress: no.BillingAddress,
		ItemAmount:     price.Amount,
		TotalAmount:    price.Amount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if no.DiscountCode != nil && strings.TrimSpace(*no.DiscountCode) != "" {
		p, err := discount.Validate(ctx, s.db, *no.DiscountCode, price.Amount, now)
		if err != nil {
			return PaymentRequest{}, err
		}
		ord.DiscountID = &p.ID
		ord.DiscountApplied = p.DiscountAmount
		ord.TotalAmount = p.DiscountedAmount
	}

	callback, err := callbackURL(no.CallbackURL, ord.ID)
	if err != nil {
		return PaymentRequest{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ref, err := random.Reference("ord", referenceLength)
	if err != nil {
		return PaymentRequest{}, err
	}

	if err := Create(ctx, s.db, ord); err != nil {
		return PaymentRequest{}, err
	}

	log := s.log.WithField("order_id", ord.ID)

	tx := payment.Transaction{
		Email:       clm.Email,
		Amount:      ord.TotalAmount,
		Description: price.Name,
		CallbackURL: callback,
		Reference:   ref,
		Metadata: map[string]string{
			"orderId":  ord.ID,
			"itemType": string(it.Type()),
			"itemId":   it.ID(),
		},
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	in, err := s.gateway.InitiateTransaction(gctx, tx)
	if err != nil {
		log.WithError(err).Warn("payment initiation failed")
		return PaymentRequest{}, err
	}

	if err := SetPayment(ctx, s.db, ord.ID, in, s.now()); err != nil {
		return PaymentRequest{}, err
	}

	ord.AuthorizationURL = &in.AuthorizationURL
	ord.AccessCode = &in.AccessCode
	ord.Reference = &in.Reference

	log.WithFields(logrus.Fields{
		"reference": in.Reference,
		"total":     ord.TotalAmount.StringFixed(2),
	}).Info("order placed")

	return paymentRequest(ord), nil
}

// AttemptPayment returns the stored payment handles of an unpaid order.
// It never starts a new transaction with the gateway.
func (s *Service) AttemptPayment(ctx context.Context, clm claims.Claims, orderID string) (PaymentRequest, error) {
	ord, err := s.owned(ctx, clm, orderID)
	if err != nil {
		return PaymentRequest{}, err
	}

	if ord.IsPaid {
		return PaymentRequest{}, ErrAlreadyPaid
	}
	if !ord.Initiated() {
		return PaymentRequest{}, fmt.Errorf("%w: payment was never initiated, place a new order", ErrInvalid)
	}

	if ord.DiscountID != nil {
		_, err := discount.Revalidate(ctx, s.db, *ord.DiscountID, ord.ItemAmount, s.now())
		switch {
		case errors.Is(err, discount.ErrInvalid), errors.Is(err, discount.ErrBelowMinimum), errors.Is(err, discount.ErrNotFound):
			return PaymentRequest{}, fmt.Errorf("%w: discount applied to order is no longer valid, please try again", ErrInvalid)
		case err != nil:
			return PaymentRequest{}, err
		}
	}

	return paymentRequest(ord), nil
}

// ConfirmPayment verifies the order's transaction and, when settled,
// marks the order paid, redeems its discount and grants access in one
// transaction.
func (s *Service) ConfirmPayment(ctx context.Context, clm claims.Claims, orderID string) error {
	ord, err := s.owned(ctx, clm, orderID)
	if err != nil {
		return err
	}

	if !ord.Initiated() {
		return fmt.Errorf("%w: invalid payment confirmation attempt", ErrInvalid)
	}
	if ord.IsPaid {
		return ErrAlreadyPaid
	}

	log := s.log.WithFields(logrus.Fields{"order_id": ord.ID, "reference": *ord.Reference})

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.gateway.VerifyTransaction(gctx, *ord.Reference)
	if err != nil {
		log.WithError(err).Warn("payment verification failed")
		return err
	}
	if !v.Succeeded() {
		return fmt.Errorf("%w: transaction status is %q", ErrPaymentIncomplete, v.Status)
	}

	now := s.now()
	err = database.Transaction(ctx, s.db, func(tx sqlx.ExtContext) error {
		if err := MarkPaid(ctx, tx, ord.ID, now); err != nil {
			return err
		}

		if ord.DiscountID != nil {
			if err := discount.Redeem(ctx, tx, *ord.DiscountID, now); err != nil {
				return err
			}
		}

		g := entitlement.Grant{
			OrderID:    ord.ID,
			UserID:     ord.UserID,
			ItemType:   ord.Item.Type(),
			ItemID:     ord.Item.ID(),
			DurationID: ord.DurationID,
		}
		return entitlement.Provision(ctx, tx, g, now)
	})

	switch {
	case err == nil:
		log.WithField("transaction_id", v.TransactionID).Info("payment confirmed")
		return nil
	case errors.Is(err, ErrAlreadyPaid):
		return err
	}

	log.WithError(err).WithFields(alertFields(err)).Error("payment verified but the order could not be completed")

	if errors.Is(err, discount.ErrInvalid) {
		return fmt.Errorf("%w: discount applied to order is no longer valid", ErrInvalid)
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// alertFields tags the log line of a verified payment whose order could
// not be completed. A failed commit leaves the outcome unknown.
func alertFields(err error) logrus.Fields {
	f := logrus.Fields{"alert": true, "stage": "write"}

	var ce *database.CommitError
	if errors.As(err, &ce) {
		f["stage"] = "commit"
	}
	return f
}

// owned fetches an order of the caller. Other users' orders do not
// exist for the caller.
func (s *Service) owned(ctx context.Context, clm claims.Claims, orderID string) (Order, error) {
	ord, err := Fetch(ctx, s.db, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != clm.UserID {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

// callbackURL appends the order id to where the gateway sends the buyer
// back.
func callbackURL(raw, orderID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing callback url: %w", err)
	}

	q := u.Query()
	q.Set("orderId", orderID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
