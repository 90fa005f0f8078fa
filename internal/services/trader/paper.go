package trader

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperTrader accepts every order without touching an exchange. The
// control loop records the resulting simulated fill in the ledger.
type PaperTrader struct {
	logger *zap.Logger
}

// NewPaperTrader creates a PaperTrader.
func NewPaperTrader(logger *zap.Logger) *PaperTrader {
	return &PaperTrader{logger: logger}
}

// Buy accepts a simulated buy.
func (t *PaperTrader) Buy(_ context.Context, quantity decimal.Decimal) error {
	t.logger.Debug("paper buy", zap.String("quantity", quantity.String()))
	return nil
}

// Sell accepts a simulated sell.
func (t *PaperTrader) Sell(_ context.Context, quantity decimal.Decimal) error {
	t.logger.Debug("paper sell", zap.String("quantity", quantity.String()))
	return nil
}
