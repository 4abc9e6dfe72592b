package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const columns = `
	discount_id, code, amount, is_percentage, is_active, is_single_use,
	total_available, total_used, min_amount, expiry_date, is_deleted,
	deleted_by, deleted_at, created_at, updated_at`

func Fetch(ctx context.Context, db sqlx.QueryerContext, id string) (Discount, error) {
	q := `SELECT` + columns + ` FROM discounts WHERE discount_id = $1`

	var d Discount
	if err := sqlx.GetContext(ctx, db, &d, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, fmt.Errorf("selecting discount[%s]: %w", id, err)
	}
	return d, nil
}

// FetchByCode looks a code up ignoring surrounding blanks.
func FetchByCode(ctx context.Context, db sqlx.QueryerContext, code string) (Discount, error) {
	q := `SELECT` + columns + ` FROM discounts WHERE code = $1`

	var d Discount
	if err := sqlx.GetContext(ctx, db, &d, q, strings.TrimSpace(code)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, fmt.Errorf("selecting discount by code: %w", err)
	}
	return d, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, d Discount) error {
	const q = `
	INSERT INTO discounts (
		discount_id, code, amount, is_percentage, is_active, is_single_use,
		total_available, total_used, min_amount, expiry_date, created_at, updated_at
	) VALUES (
		:discount_id, :code, :amount, :is_percentage, :is_active, :is_single_use,
		:total_available, :total_used, :min_amount, :expiry_date, :created_at, :updated_at
	)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, d); err != nil {
		return fmt.Errorf("inserting discount: %w", err)
	}
	return nil
}

// IsRedeemed reports whether a paid order carries the discount.
func IsRedeemed(ctx context.Context, db sqlx.QueryerContext, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM orders WHERE discount_id = $1 AND is_paid)`

	var ok bool
	if err := sqlx.GetContext(ctx, db, &ok, q, id); err != nil {
		return false, fmt.Errorf("checking redemptions of discount[%s]: %w", id, err)
	}
	return ok, nil
}

// Validate previews code against subtotal without consuming it.
func Validate(ctx context.Context, db sqlx.QueryerContext, code string, subtotal decimal.Decimal, now time.Time) (Preview, error) {
	d, err := FetchByCode(ctx, db, code)
	if err != nil {
		return Preview{}, err
	}
	return evaluate(ctx, db, d, subtotal, now)
}

// Revalidate is Validate for a discount already attached to an order.
func Revalidate(ctx context.Context, db sqlx.QueryerContext, id string, subtotal decimal.Decimal, now time.Time) (Preview, error) {
	d, err := Fetch(ctx, db, id)
	if err != nil {
		return Preview{}, err
	}
	return evaluate(ctx, db, d, subtotal, now)
}

func evaluate(ctx context.Context, db sqlx.QueryerContext, d Discount, subtotal decimal.Decimal, now time.Time) (Preview, error) {
	var redeemed bool
	if d.IsSingleUse {
		var err error
		if redeemed, err = IsRedeemed(ctx, db, d.ID); err != nil {
			return Preview{}, err
		}
	}
	return Evaluate(d, subtotal, redeemed, now)
}

// Redeem records one use of the discount. The increment only happens
// while the code is still redeemable, so two concurrent redemptions of
// a single use code cannot both succeed.
func Redeem(ctx context.Context, tx sqlx.ExtContext, id string, now time.Time) error {
	const q = `
	UPDATE discounts SET
		total_used = total_used + 1,
		updated_at = $2
	WHERE discount_id = $1
		AND is_active AND NOT is_deleted
		AND (expiry_date IS NULL OR expiry_date > $2)
		AND NOT (is_single_use AND total_used > 0)
		AND (total_available = -1 OR total_used <= total_available)`

	res, err := tx.ExecContext(ctx, q, id, now)
	if err != nil {
		return fmt.Errorf("redeeming discount[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeeming discount[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no longer redeemable", ErrInvalid)
	}
	return nil
}

// Delete tombstones the discount. Deleted codes stay in place for the
// orders that reference them.
func Delete(ctx context.Context, db sqlx.ExecerContext, id string, deletedBy string, now time.Time) error {
	const q = `
	UPDATE discounts SET
		is_deleted = TRUE,
		deleted_by = $2,
		deleted_at = $3,
		updated_at = $3
	WHERE discount_id = $1 AND NOT is_deleted`

	res, err := db.ExecContext(ctx, q, id, deletedBy, now)
	if err != nil {
		return fmt.Errorf("deleting discount[%s]: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting discount[%s]: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
