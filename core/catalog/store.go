package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound         = errors.New("item not found")
	ErrUnknownType      = errors.New("unknown item type")
	ErrDurationRequired = errors.New("a duration is required for this item")
	ErrDurationNotFound = errors.New("duration not found")
)

const (
	coursePrice = `
	SELECT c.course_id AS item_id, c.name, p.price
	FROM courses c
	JOIN course_prices p ON p.course_id = c.course_id
	WHERE c.course_id = $1 AND p.duration_id = $2`

	seriesPrice = `
	SELECT s.series_id AS item_id, s.name, p.price
	FROM series s
	JOIN series_prices p ON p.series_id = s.series_id
	WHERE s.series_id = $1 AND p.duration_id = $2`

	smeHubPrice = `
	SELECT sme_hub_id AS item_id, name, price
	FROM sme_hubs
	WHERE sme_hub_id = $1`

	agreementPrice = `
	SELECT agreement_id AS item_id, name, price
	FROM annotated_agreements
	WHERE agreement_id = $1`
)

// ResolvePrice returns the price of an item. Course and Series need a
// duration; an unknown item or a duration the item is not sold for both
// yield ErrNotFound.
func ResolvePrice(ctx context.Context, db sqlx.QueryerContext, typ ItemType, itemID string, durationID *string) (Price, error) {
	if !typ.Valid() {
		return Price{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	var (
		q    string
		args []any
	)
	switch typ {
	case Course, Series:
		if durationID == nil || *durationID == "" {
			return Price{}, ErrDurationRequired
		}
		q = coursePrice
		if typ == Series {
			q = seriesPrice
		}
		args = []any{itemID, *durationID}
	case SmeHub:
		q, args = smeHubPrice, []any{itemID}
	case AnnotatedAgreement:
		q, args = agreementPrice, []any{itemID}
	}

	var p Price
	if err := sqlx.GetContext(ctx, db, &p, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Price{}, fmt.Errorf("%s[%s]: %w", typ, itemID, ErrNotFound)
		}
		return Price{}, fmt.Errorf("selecting %s price: %w", typ, err)
	}

	return p, nil
}

func FetchDuration(ctx context.Context, db sqlx.QueryerContext, id string) (Duration, error) {
	const q = `
	SELECT duration_id, name, count, type
	FROM durations
	WHERE duration_id = $1`

	var d Duration
	if err := sqlx.GetContext(ctx, db, &d, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Duration{}, ErrDurationNotFound
		}
		return Duration{}, fmt.Errorf("selecting duration[%s]: %w", id, err)
	}

	return d, nil
}

// FetchSeriesCourses returns the live courses of a series ordered by
// their position.
func FetchSeriesCourses(ctx context.Context, db sqlx.QueryerContext, seriesID string) ([]SeriesCourse, error) {
	const q = `
	SELECT course_id, position
	FROM series_courses
	WHERE series_id = $1 AND NOT is_deleted
	ORDER BY position`

	var cc []SeriesCourse
	if err := sqlx.SelectContext(ctx, db, &cc, q, seriesID); err != nil {
		return nil, fmt.Errorf("selecting courses of series[%s]: %w", seriesID, err)
	}

	return cc, nil
}
