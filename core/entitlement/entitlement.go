// Package entitlement grants buyers access to what they paid for and
// seeds the progress rows that the sequential gate reads later.
package entitlement

import (
	"time"

	"github.com/inchambers/commerce/core/catalog"
	"github.com/shopspring/decimal"
)

// UserContent is the time boxed access bought by one paid order.
// EndDate is nil for items that never expire.
type UserContent struct {
	ID        string     `json:"id" db:"user_content_id"`
	UserID    string     `json:"userId" db:"user_id"`
	OrderID   string     `json:"orderId" db:"order_id"`
	StartDate time.Time  `json:"startDate" db:"start_date"`
	EndDate   *time.Time `json:"endDate" db:"end_date"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

type UserCourse struct {
	ID          string          `json:"id" db:"user_course_id"`
	UserID      string          `json:"userId" db:"user_id"`
	CourseID    string          `json:"courseId" db:"course_id"`
	Progress    decimal.Decimal `json:"progress" db:"progress"`
	IsCompleted bool            `json:"isCompleted" db:"is_completed"`
	IsExpired   bool            `json:"isExpired" db:"is_expired"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// UserSeries is a membership of a series.
type UserSeries struct {
	ID          string    `json:"id" db:"user_series_id"`
	UserID      string    `json:"userId" db:"user_id"`
	SeriesID    string    `json:"seriesId" db:"series_id"`
	IsCompleted bool      `json:"isCompleted" db:"is_completed"`
	IsExpired   bool      `json:"isExpired" db:"is_expired"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// SeriesProgress is the progress of a member on one course of the
// series. Position is the 1-based rank of the course in the series when
// the membership was bought.
type SeriesProgress struct {
	UserSeriesID string          `json:"userSeriesId" db:"user_series_id"`
	CourseID     string          `json:"courseId" db:"course_id"`
	Position     int             `json:"position" db:"position"`
	Progress     decimal.Decimal `json:"progress" db:"progress"`
	IsCompleted  bool            `json:"isCompleted" db:"is_completed"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// Grant describes a paid order from the provisioner's point of view.
type Grant struct {
	OrderID    string
	UserID     string
	ItemType   catalog.ItemType
	ItemID     string
	DurationID *string
}
