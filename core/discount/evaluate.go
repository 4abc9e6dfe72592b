package discount

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("discount code not found")
	ErrInvalid      = errors.New("discount code is not valid")
	ErrBelowMinimum = errors.New("discount code is not valid for this amount")
)

var hundred = decimal.NewFromInt(100)

// Evaluate applies d to subtotal. redeemed tells whether a paid order
// already carries the code. A nil expiry date never expires.
//
// The discount is not capped at the subtotal, so a fixed amount larger
// than the subtotal yields a negative DiscountedAmount.
func Evaluate(d Discount, subtotal decimal.Decimal, redeemed bool, now time.Time) (Preview, error) {
	if err := usable(d, redeemed, now); err != nil {
		return Preview{}, err
	}

	if d.MinAmount.Valid && subtotal.LessThan(d.MinAmount.Decimal) {
		return Preview{}, ErrBelowMinimum
	}

	p := Preview{ID: d.ID, TotalAmount: subtotal}
	if d.IsPercentage {
		p.DiscountAmount = subtotal.Mul(d.Amount).Div(hundred).Round(2)
		p.Message = fmt.Sprintf("Discount of %s%% applied, you have saved %s", d.Amount, p.DiscountAmount.StringFixed(2))
	} else {
		p.DiscountAmount = d.Amount
		p.Message = fmt.Sprintf("Discount applied, you have saved %s", p.DiscountAmount.StringFixed(2))
	}
	p.DiscountedAmount = subtotal.Sub(p.DiscountAmount)

	return p, nil
}

func usable(d Discount, redeemed bool, now time.Time) error {
	switch {
	case d.TotalAvailable != Unlimited && d.TotalUsed > d.TotalAvailable:
		return fmt.Errorf("%w: no longer available", ErrInvalid)
	case d.IsSingleUse && redeemed:
		return fmt.Errorf("%w: already used", ErrInvalid)
	case !d.IsActive || d.IsDeleted:
		return ErrInvalid
	case d.ExpiryDate != nil && !d.ExpiryDate.After(now):
		return fmt.Errorf("%w: expired", ErrInvalid)
	}
	return nil
}
