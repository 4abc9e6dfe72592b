package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/core/entitlement"
	"github.com/inchambers/commerce/core/order"
	"github.com/inchambers/commerce/core/progress"
	"github.com/inchambers/commerce/database"
	"github.com/inchambers/commerce/validate"
	"github.com/jmoiron/sqlx"
)

type progressTest struct {
	*TestEnv
	seed catalogSeed
	user claims.Claims
}

func TestSeriesProgress(t *testing.T) {
	env, err := NewTestEnv(t, "series_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &progressTest{
		TestEnv: env,
		seed:    env.seedCatalog(t),
		user:    claims.Claims{UserID: validate.GenerateID(), Email: "member@example.com", Role: claims.RoleUser},
	}
	env.Login(t, pt.user)

	seriesPath := "/series/" + pt.seed.SeriesID

	// No membership yet.
	pt.expect(t, http.MethodGet, seriesPath+"/progress", nil, http.StatusForbidden, nil)

	ordID := pt.buy(t, "Series", pt.seed.SeriesID)

	rows := pt.rows(t)
	if diff := cmp.Diff([]progress.State{progress.Unlocked, progress.Locked, progress.Locked}, states(rows)); diff != "" {
		t.Fatalf("fresh membership states (-want +got):\n%s", diff)
	}
	for i, r := range rows {
		if r.Position != i+1 || r.CourseID != pt.seed.Series[i] {
			t.Fatalf("row %d: unexpected position %d of course %s", i, r.Position, r.CourseID)
		}
	}

	c1, c2, c3 := pt.seed.Series[0], pt.seed.Series[1], pt.seed.Series[2]
	course := func(id string) string { return seriesPath + "/courses/" + id }

	// Reading the third course before the second is completed redirects.
	w := pt.do(t, http.MethodGet, course(c3)+"/progress", nil)
	w.Body.Close()
	if w.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 for a locked course, got %s", w.Status)
	}
	if loc := w.Header.Get("Location"); loc != course(c2)+"/progress" {
		t.Fatalf("expected redirect to the second course, got %q", loc)
	}

	pt.expect(t, http.MethodGet, course(c1)+"/progress", nil, http.StatusOK, nil)
	pt.expect(t, http.MethodPut, course(c1)+"/progress", progress.ProgressUp{Progress: ptr(0.4)}, http.StatusNoContent, nil)
	pt.expect(t, http.MethodPut, course(c1)+"/progress", progress.ProgressUp{Progress: ptr(1.4)}, http.StatusBadRequest, nil)
	pt.expect(t, http.MethodPut, course(c2)+"/progress", progress.ProgressUp{Progress: ptr(0.1)}, http.StatusSeeOther, nil)

	// Reporting never completes.
	pt.expect(t, http.MethodPut, course(c1)+"/progress", progress.ProgressUp{Progress: ptr(1)}, http.StatusNoContent, nil)
	if got := states(pt.rows(t)); got[0] != progress.InProgress || got[1] != progress.Locked {
		t.Fatalf("reporting full progress changed the gate: %v", got)
	}

	pt.expect(t, http.MethodPost, course(c1)+"/complete", nil, http.StatusNoContent, nil)
	pt.expect(t, http.MethodPost, course(c3)+"/complete", nil, http.StatusSeeOther, nil)
	pt.expect(t, http.MethodGet, course(c2)+"/progress", nil, http.StatusOK, nil)
	pt.expect(t, http.MethodPost, course(c2)+"/complete", nil, http.StatusNoContent, nil)

	if pt.memberCompleted(t) {
		t.Fatal("membership completed before its last course")
	}

	pt.expect(t, http.MethodPost, course(c3)+"/complete", nil, http.StatusNoContent, nil)

	if !pt.memberCompleted(t) {
		t.Fatal("membership not completed after its last course")
	}

	pt.expect(t, http.MethodGet, course(validate.GenerateID())+"/progress", nil, http.StatusNotFound, nil)

	pt.provisionAgain(t, ordID)
	late := pt.snapshot(t)
	pt.repurchase(t, late)
}

// provisionAgain runs the provisioner a second time for a paid order and
// expects no new rows and no reset.
func (pt *progressTest) provisionAgain(t *testing.T, orderID string) {
	ctx := context.Background()

	ord, err := order.Fetch(ctx, pt.DB, orderID)
	if err != nil {
		t.Fatal(err)
	}

	g := entitlement.Grant{
		OrderID:    ord.ID,
		UserID:     ord.UserID,
		ItemType:   ord.Item.Type(),
		ItemID:     ord.Item.ID(),
		DurationID: ord.DurationID,
	}
	err = database.Transaction(ctx, pt.DB, func(tx sqlx.ExtContext) error {
		return entitlement.Provision(ctx, tx, g, time.Now().UTC())
	})
	if err != nil {
		t.Fatal(err)
	}

	if n := pt.count(t, `SELECT count(*) FROM user_series WHERE user_id = $1`, pt.user.UserID); n != 1 {
		t.Fatalf("expected one membership, got %d", n)
	}
	if n := pt.count(t, `SELECT count(*) FROM series_progress`); n != 3 {
		t.Fatalf("expected three progress rows, got %d", n)
	}
	if !pt.memberCompleted(t) {
		t.Fatal("provisioning an already provisioned order reset the membership")
	}
}

// snapshot adds a course to the series and checks existing members do
// not get it. It returns the added course.
func (pt *progressTest) snapshot(t *testing.T) string {
	id := validate.GenerateID()
	ctx := context.Background()

	if _, err := pt.DB.ExecContext(ctx, `INSERT INTO courses (course_id, name) VALUES ($1, 'Late addition')`, id); err != nil {
		t.Fatal(err)
	}
	if _, err := pt.DB.ExecContext(ctx, `INSERT INTO series_courses (series_id, course_id, position) VALUES ($1, $2, 4)`, pt.seed.SeriesID, id); err != nil {
		t.Fatal(err)
	}

	if n := len(pt.rows(t)); n != 3 {
		t.Fatalf("a course added later leaked into an existing membership: %d rows", n)
	}
	return id
}

// repurchase removes the second course from the series, buys the series
// again and expects the membership to follow the new composition with
// every row reset.
func (pt *progressTest) repurchase(t *testing.T, late string) {
	c1, c2, c3 := pt.seed.Series[0], pt.seed.Series[1], pt.seed.Series[2]

	const remove = `UPDATE series_courses SET is_deleted = TRUE WHERE series_id = $1 AND course_id = $2`
	if _, err := pt.DB.Exec(remove, pt.seed.SeriesID, c2); err != nil {
		t.Fatal(err)
	}

	pt.buy(t, "Series", pt.seed.SeriesID)

	rows := pt.rows(t)
	want := []string{c1, c3, late}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows after repurchase, got %d", len(want), len(rows))
	}
	for i, r := range rows {
		if r.CourseID != want[i] || r.Position != i+1 {
			t.Fatalf("row %d: got course %s at position %d, want %s at %d", i, r.CourseID, r.Position, want[i], i+1)
		}
		if r.IsCompleted || !r.Progress.IsZero() {
			t.Fatalf("row %d not reset: %+v", i, r)
		}
	}
	if diff := cmp.Diff([]progress.State{progress.Unlocked, progress.Locked, progress.Locked}, states(rows)); diff != "" {
		t.Fatalf("repurchased membership states (-want +got):\n%s", diff)
	}
	if pt.memberCompleted(t) {
		t.Fatal("repurchase kept the membership completed")
	}

	course := func(id string) string { return "/series/" + pt.seed.SeriesID + "/courses/" + id + "/progress" }

	// The removed course is gone and the gate follows the new order.
	pt.expect(t, http.MethodGet, course(c2), nil, http.StatusNotFound, nil)
	w := pt.do(t, http.MethodGet, course(c3), nil)
	w.Body.Close()
	if w.StatusCode != http.StatusSeeOther || w.Header.Get("Location") != course(c1) {
		t.Fatalf("expected redirect to the first course, got %s %q", w.Status, w.Header.Get("Location"))
	}
}

func TestCourseProgress(t *testing.T) {
	env, err := NewTestEnv(t, "course_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &progressTest{
		TestEnv: env,
		seed:    env.seedCatalog(t),
		user:    claims.Claims{UserID: validate.GenerateID(), Email: "learner@example.com", Role: claims.RoleUser},
	}
	env.Login(t, pt.user)

	path := "/courses/" + pt.seed.CourseID

	pt.expect(t, http.MethodGet, path+"/progress", nil, http.StatusForbidden, nil)
	pt.expect(t, http.MethodPut, path+"/progress", progress.ProgressUp{Progress: ptr(0.5)}, http.StatusForbidden, nil)

	pt.buy(t, "Course", pt.seed.CourseID)

	pt.expect(t, http.MethodPut, path+"/progress", progress.ProgressUp{Progress: ptr(0.5)}, http.StatusNoContent, nil)
	pt.expect(t, http.MethodPost, path+"/complete", nil, http.StatusNoContent, nil)

	var uc entitlement.UserCourse
	pt.expect(t, http.MethodGet, path+"/progress", nil, http.StatusOK, &uc)
	if !uc.IsCompleted || uc.Progress.String() != "0.5" {
		t.Fatalf("unexpected course progress %+v", uc)
	}

	// Buying again resets the row instead of adding one.
	pt.buy(t, "Course", pt.seed.CourseID)

	pt.expect(t, http.MethodGet, path+"/progress", nil, http.StatusOK, &uc)
	if uc.IsCompleted || !uc.Progress.IsZero() {
		t.Fatalf("repurchase did not reset progress: %+v", uc)
	}
	if n := pt.count(t, `SELECT count(*) FROM user_courses WHERE user_id = $1`, pt.user.UserID); n != 1 {
		t.Fatalf("expected one course row, got %d", n)
	}

	// Expired access cannot be read or written.
	if _, err := pt.DB.Exec(`UPDATE user_courses SET is_expired = TRUE WHERE user_id = $1`, pt.user.UserID); err != nil {
		t.Fatal(err)
	}
	pt.expect(t, http.MethodGet, path+"/progress", nil, http.StatusForbidden, nil)
}

// buy places and confirms an order, returning its id.
func (pt *progressTest) buy(t *testing.T, itemType string, itemID string) string {
	t.Helper()

	no := order.NewOrder{
		ItemType:       itemType,
		ItemUID:        itemID,
		DurationID:     &pt.seed.DurationID,
		BillingAddress: "4 Broad Street, Lagos",
		CallbackURL:    callback,
	}

	var pr order.PaymentRequest
	pt.expect(t, http.MethodPost, "/orders", no, http.StatusCreated, &pr)

	pt.Paystack.pay(pr.Reference)
	pt.expect(t, http.MethodGet, "/orders/"+pr.ID+"/confirm-payment", nil, http.StatusOK, nil)

	return pr.ID
}

func (pt *progressTest) rows(t *testing.T) []progress.Row {
	t.Helper()

	var rows []progress.Row
	pt.expect(t, http.MethodGet, "/series/"+pt.seed.SeriesID+"/progress", nil, http.StatusOK, &rows)
	return rows
}

func (pt *progressTest) memberCompleted(t *testing.T) bool {
	t.Helper()

	const q = `SELECT count(*) FROM user_series WHERE user_id = $1 AND series_id = $2 AND is_completed`
	return pt.count(t, q, pt.user.UserID, pt.seed.SeriesID) == 1
}

func states(rows []progress.Row) []progress.State {
	ss := make([]progress.State, len(rows))
	for i, r := range rows {
		ss[i] = r.State
	}
	return ss
}

func ptr(f float64) *float64 { return &f }
