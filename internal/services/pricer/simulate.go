package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
)

// SimulatePricer serves paper accounts with real market prices from the
// Binance public API, no credentials required.
type SimulatePricer struct {
	delegate *BinancePricer
}

// NewSimulatePricer creates a SimulatePricer backed by a keyless
// Binance client.
func NewSimulatePricer() *SimulatePricer {
	return &SimulatePricer{delegate: NewBinancePricer(binance.NewClient("", ""))}
}

// GetPrice returns the last traded price for the pair.
func (p *SimulatePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return p.delegate.GetPrice(ctx, pair)
}
