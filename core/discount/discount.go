package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unlimited is the TotalAvailable of a code with no usage cap.
const Unlimited = -1

type Discount struct {
	ID             string              `json:"id" db:"discount_id"`
	Code           string              `json:"code" db:"code"`
	Amount         decimal.Decimal     `json:"amount" db:"amount"`
	IsPercentage   bool                `json:"isPercentage" db:"is_percentage"`
	IsActive       bool                `json:"isActive" db:"is_active"`
	IsSingleUse    bool                `json:"isSingleUse" db:"is_single_use"`
	TotalAvailable int                 `json:"totalAvailable" db:"total_available"`
	TotalUsed      int                 `json:"totalUsed" db:"total_used"`
	MinAmount      decimal.NullDecimal `json:"minAmount" db:"min_amount"`
	ExpiryDate     *time.Time          `json:"expiryDate" db:"expiry_date"`
	IsDeleted      bool                `json:"-" db:"is_deleted"`
	DeletedBy      *string             `json:"-" db:"deleted_by"`
	DeletedAt      *time.Time          `json:"-" db:"deleted_at"`
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" db:"updated_at"`
}

// Preview is the effect of a code on a subtotal.
type Preview struct {
	ID               string          `json:"id"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DiscountAmount   decimal.Decimal `json:"discount"`
	DiscountedAmount decimal.Decimal `json:"discountedAmount"`
	Message          string          `json:"message"`
}
