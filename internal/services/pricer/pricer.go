// Package pricer fetches the current price for a trading pair.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
)

// Pricer returns the last traded price for a pair. Implementations may
// fail transiently; callers retry on the next cycle.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}
