package test

import (
	"context"
	"testing"
	"time"

	"github.com/inchambers/commerce/core/discount"
	"github.com/inchambers/commerce/validate"
	"github.com/shopspring/decimal"
)

type catalogSeed struct {
	DurationID string
	CourseID   string
	SeriesID   string
	Series     []string
	SmeHubID   string
}

// seedCatalog writes the rows the catalog service would own: a three
// month duration, a course at 100.00, a series of three courses at
// 250.00 and an sme hub at 40.00.
func (env *TestEnv) seedCatalog(t *testing.T) catalogSeed {
	t.Helper()
	ctx := context.Background()

	s := catalogSeed{
		DurationID: validate.GenerateID(),
		CourseID:   validate.GenerateID(),
		SeriesID:   validate.GenerateID(),
		SmeHubID:   validate.GenerateID(),
	}

	exec := func(q string, args ...any) {
		t.Helper()
		if _, err := env.DB.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("seeding catalog: %v", err)
		}
	}

	exec(`INSERT INTO durations (duration_id, name, count, type) VALUES ($1, '3 Months', 3, 'Months')`, s.DurationID)

	exec(`INSERT INTO courses (course_id, name) VALUES ($1, 'Contract drafting')`, s.CourseID)
	exec(`INSERT INTO course_prices (course_id, duration_id, price) VALUES ($1, $2, 100.00)`, s.CourseID, s.DurationID)

	exec(`INSERT INTO series (series_id, name) VALUES ($1, 'Corporate law')`, s.SeriesID)
	exec(`INSERT INTO series_prices (series_id, duration_id, price) VALUES ($1, $2, 250.00)`, s.SeriesID, s.DurationID)
	for i := 1; i <= 3; i++ {
		id := validate.GenerateID()
		exec(`INSERT INTO courses (course_id, name) VALUES ($1, 'Series course')`, id)
		exec(`INSERT INTO series_courses (series_id, course_id, position) VALUES ($1, $2, $3)`, s.SeriesID, id, i)
		s.Series = append(s.Series, id)
	}

	exec(`INSERT INTO sme_hubs (sme_hub_id, name, price) VALUES ($1, 'Startup toolkit', 40.00)`, s.SmeHubID)

	return s
}

func (env *TestEnv) seedDiscount(t *testing.T, code string, amount string, percentage, singleUse bool) discount.Discount {
	t.Helper()

	now := time.Now().UTC()
	expiry := now.Add(24 * time.Hour)
	d := discount.Discount{
		ID:             validate.GenerateID(),
		Code:           code,
		Amount:         decimal.RequireFromString(amount),
		IsPercentage:   percentage,
		IsActive:       true,
		IsSingleUse:    singleUse,
		TotalAvailable: discount.Unlimited,
		ExpiryDate:     &expiry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := discount.Create(context.Background(), env.DB, d); err != nil {
		t.Fatal(err)
	}
	return d
}

func (env *TestEnv) count(t *testing.T, q string, args ...any) int {
	t.Helper()

	var n int
	if err := env.DB.GetContext(context.Background(), &n, q, args...); err != nil {
		t.Fatal(err)
	}
	return n
}
