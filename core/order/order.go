package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/inchambers/commerce/core/catalog"
	"github.com/shopspring/decimal"
)

// Item is what an order buys. Exactly one of Course, Series, SmeHub or
// AnnotatedAgreement.
type Item interface {
	Type() catalog.ItemType
	ID() string
	item()
}

type Course struct{ CourseID string }

func (c Course) Type() catalog.ItemType { return catalog.Course }
func (c Course) ID() string             { return c.CourseID }
func (Course) item()                    {}

type Series struct{ SeriesID string }

func (s Series) Type() catalog.ItemType { return catalog.Series }
func (s Series) ID() string             { return s.SeriesID }
func (Series) item()                    {}

type SmeHub struct{ SmeHubID string }

func (h SmeHub) Type() catalog.ItemType { return catalog.SmeHub }
func (h SmeHub) ID() string             { return h.SmeHubID }
func (SmeHub) item()                    {}

type AnnotatedAgreement struct{ AgreementID string }

func (a AnnotatedAgreement) Type() catalog.ItemType { return catalog.AnnotatedAgreement }
func (a AnnotatedAgreement) ID() string             { return a.AgreementID }
func (AnnotatedAgreement) item()                    {}

var errUnknownItem = errors.New("unknown item type")

func NewItem(typ catalog.ItemType, id string) (Item, error) {
	switch typ {
	case catalog.Course:
		return Course{CourseID: id}, nil
	case catalog.Series:
		return Series{SeriesID: id}, nil
	case catalog.SmeHub:
		return SmeHub{SmeHubID: id}, nil
	case catalog.AnnotatedAgreement:
		return AnnotatedAgreement{AgreementID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownItem, typ)
}

// Order is one purchase attempt. The gateway handles stay nil until the
// payment was initiated. TotalAmount is always ItemAmount minus
// DiscountApplied.
type Order struct {
	ID               string
	UserID           string
	Item             Item
	DurationID       *string
	DiscountID       *string
	BillingAddress   string
	ItemAmount       decimal.Decimal
	DiscountApplied  decimal.Decimal
	TotalAmount      decimal.Decimal
	AuthorizationURL *string
	AccessCode       *string
	Reference        *string
	IsPaid           bool
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (o Order) Initiated() bool { return o.Reference != nil && *o.Reference != "" }

type NewOrder struct {
	ItemType       string  `json:"itemType" validate:"required,oneof=Course Series SmeHub AnnotatedAgreement"`
	ItemUID        string  `json:"itemUid" validate:"required"`
	DurationID     *string `json:"durationId"`
	DiscountCode   *string `json:"discountCode"`
	BillingAddress string  `json:"billingAddress" validate:"required"`
	CallbackURL    string  `json:"callbackUrl" validate:"required,url"`
}

// PaymentRequest tells the buyer where to pay for an order.
type PaymentRequest struct {
	ID               string `json:"id"`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

func paymentRequest(o Order) PaymentRequest {
	pr := PaymentRequest{ID: o.ID}
	if o.AuthorizationURL != nil {
		pr.AuthorizationURL = *o.AuthorizationURL
	}
	if o.AccessCode != nil {
		pr.AccessCode = *o.AccessCode
	}
	if o.Reference != nil {
		pr.Reference = *o.Reference
	}
	return pr
}
