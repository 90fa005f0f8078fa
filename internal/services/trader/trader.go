// Package trader places spot market orders on an exchange.
package trader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance marks an order rejected for lack of funds. The
// control loop degrades it to a skipped trade instead of an error.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Trader places spot market orders. Quantity is in the base asset.
type Trader interface {
	Buy(ctx context.Context, quantity decimal.Decimal) error
	Sell(ctx context.Context, quantity decimal.Decimal) error
}
