// Package payment defines the contract between order processing and an
// external payment provider. Adapters live in the sub packages.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusSuccess is the normalized status of a settled transaction.
const StatusSuccess = "success"

// Transaction is what the buyer is asked to pay.
type Transaction struct {
	Email       string
	Amount      decimal.Decimal
	Description string
	CallbackURL string
	Reference   string
	Metadata    map[string]string
}

// Initiated holds the provider handles for a started transaction. The
// buyer is sent to AuthorizationURL; Reference is what Verify expects.
type Initiated struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type Verification struct {
	TransactionID string
	Status        string
}

func (v Verification) Succeeded() bool { return v.Status == StatusSuccess }

// Gateway is implemented by every provider adapter. Both calls block on
// the network and must honor ctx.
type Gateway interface {
	InitiateTransaction(ctx context.Context, tx Transaction) (Initiated, error)
	VerifyTransaction(ctx context.Context, reference string) (Verification, error)
}

// UpstreamError reports a failed or rejected provider call. Message is
// the provider's own explanation when it gave one.
type UpstreamError struct {
	Provider string
	Op       string
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MinorUnits renders amount in the currency's smallest unit with no
// decimal separator, e.g. 90.00 -> "9000".
func MinorUnits(amount decimal.Decimal) string {
	return amount.Shift(2).StringFixed(0)
}
