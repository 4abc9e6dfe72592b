// Package catalog resolves prices, durations and series composition from
// the tables owned by the catalog service. Nothing here writes.
package catalog

import (
	"github.com/shopspring/decimal"
)

type ItemType string

const (
	Course             ItemType = "Course"
	Series             ItemType = "Series"
	SmeHub             ItemType = "SmeHub"
	AnnotatedAgreement ItemType = "AnnotatedAgreement"
)

func (t ItemType) Valid() bool {
	switch t {
	case Course, Series, SmeHub, AnnotatedAgreement:
		return true
	}
	return false
}

// Subscription reports whether the item is priced per duration.
func (t ItemType) Subscription() bool {
	return t == Course || t == Series
}

type Price struct {
	ItemID string          `json:"itemId" db:"item_id"`
	Name   string          `json:"name" db:"name"`
	Amount decimal.Decimal `json:"amount" db:"price"`
}

// Duration is a billing period. Count is in months.
type Duration struct {
	ID    string `json:"id" db:"duration_id"`
	Name  string `json:"name" db:"name"`
	Count int    `json:"count" db:"count"`
	Type  string `json:"type" db:"type"`
}

type SeriesCourse struct {
	CourseID string `json:"courseId" db:"course_id"`
	Position int    `json:"position" db:"position"`
}
