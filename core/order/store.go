package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inchambers/commerce/core/catalog"
	"github.com/inchambers/commerce/payment"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrAlreadyPaid is returned by MarkPaid when another call won the
// transition to paid.
var ErrAlreadyPaid = fmt.Errorf("%w: payment is already completed", ErrInvalid)

type row struct {
	ID               string          `db:"order_id"`
	UserID           string          `db:"user_id"`
	ItemType         string          `db:"item_type"`
	ItemID           string          `db:"item_id"`
	DurationID       *string         `db:"duration_id"`
	DiscountID       *string         `db:"discount_id"`
	BillingAddress   string          `db:"billing_address"`
	ItemAmount       decimal.Decimal `db:"item_amount"`
	DiscountApplied  decimal.Decimal `db:"discount_applied"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	AuthorizationURL *string         `db:"authorization_url"`
	AccessCode       *string         `db:"access_code"`
	Reference        *string         `db:"reference"`
	IsPaid           bool            `db:"is_paid"`
	PaidAt           *time.Time      `db:"paid_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func toRow(o Order) row {
	return row{
		ID:               o.ID,
		UserID:           o.UserID,
		ItemType:         string(o.Item.Type()),
		ItemID:           o.Item.ID(),
		DurationID:       o.DurationID,
		DiscountID:       o.DiscountID,
		BillingAddress:   o.BillingAddress,
		ItemAmount:       o.ItemAmount,
		DiscountApplied:  o.DiscountApplied,
		TotalAmount:      o.TotalAmount,
		AuthorizationURL: o.AuthorizationURL,
		AccessCode:       o.AccessCode,
		Reference:        o.Reference,
		IsPaid:           o.IsPaid,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func (r row) toOrder() (Order, error) {
	it, err := NewItem(catalog.ItemType(r.ItemType), r.ItemID)
	if err != nil {
		return Order{}, fmt.Errorf("order[%s]: %w", r.ID, err)
	}

	return Order{
		ID:               r.ID,
		UserID:           r.UserID,
		Item:             it,
		DurationID:       r.DurationID,
		DiscountID:       r.DiscountID,
		BillingAddress:   r.BillingAddress,
		ItemAmount:       r.ItemAmount,
		DiscountApplied:  r.DiscountApplied,
		TotalAmount:      r.TotalAmount,
		AuthorizationURL: r.AuthorizationURL,
		AccessCode:       r.AccessCode,
		Reference:        r.Reference,
		IsPaid:           r.IsPaid,
		PaidAt:           r.PaidAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	INSERT INTO orders (
		order_id, user_id, item_type, item_id, duration_id, discount_id,
		billing_address, item_amount, discount_applied, total_amount,
		is_paid, created_at, updated_at
	) VALUES (
		:order_id, :user_id, :item_type, :item_id, :duration_id, :discount_id,
		:billing_address, :item_amount, :discount_applied, :total_amount,
		:is_paid, :created_at, :updated_at
	)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, toRow(o)); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.QueryerContext, id string) (Order, error) {
	const q = `
	SELECT
		order_id, user_id, item_type, item_id, duration_id, discount_id,
		billing_address, item_amount, discount_applied, total_amount,
		authorization_url, access_code, reference, is_paid, paid_at,
		created_at, updated_at
	FROM orders
	WHERE order_id = $1`

	var r row
	if err := sqlx.GetContext(ctx, db, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, err)
	}
	return r.toOrder()
}

// SetPayment stores the gateway handles of a freshly initiated order.
func SetPayment(ctx context.Context, db sqlx.ExecerContext, id string, in payment.Initiated, now time.Time) error {
	const q = `
	UPDATE orders SET
		authorization_url = $2,
		access_code = $3,
		reference = $4,
		updated_at = $5
	WHERE order_id = $1 AND reference IS NULL`

	res, err := db.ExecContext(ctx, q, id, in.AuthorizationURL, in.AccessCode, in.Reference, now)
	if err != nil {
		return fmt.Errorf("storing payment of order[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storing payment of order[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("order[%s] was already initiated", id)
	}
	return nil
}

// MarkPaid moves an unpaid order to paid. It is a single conditional
// update, so of two concurrent calls only one succeeds.
func MarkPaid(ctx context.Context, tx sqlx.ExecerContext, id string, now time.Time) error {
	const q = `
	UPDATE orders SET
		is_paid = TRUE,
		paid_at = $2,
		updated_at = $2
	WHERE order_id = $1 AND NOT is_paid`

	res, err := tx.ExecContext(ctx, q, id, now)
	if err != nil {
		return fmt.Errorf("marking order[%s] paid: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking order[%s] paid: %w", id, err)
	}
	if n == 0 {
		return ErrAlreadyPaid
	}
	return nil
}
