// Package position reconstructs holdings from the fill ledger.
package position

import (
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"go.uber.org/zap"
)

// feeRate is the exchange taker fee applied to every fill. Buys pay the
// fee from the received asset, sells pay it from the quote currency.
var feeRate = decimal.NewFromFloat(0.001)

// Tracker rebuilds a position snapshot from an ordered fill list. The
// snapshot is recomputed in full every cycle so external ledger edits
// (manual resets) take effect immediately.
type Tracker struct {
	logger *zap.Logger
}

// NewTracker creates a Tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Reconstruct folds the fill list into a PositionResult. A fresh paper
// account with an empty ledger yields a bootstrap result so the caller
// can seed an implied starting allocation once the price is known.
// Deterministic: the same ledger always produces the same snapshot.
func (t *Tracker) Reconstruct(fills []domain.Fill, cfg *domain.StrategyConfig) domain.PositionResult {
	if len(fills) == 0 && cfg.PaperTrading {
		return domain.NewBootstrapResult(cfg.Pair, cfg.Budget)
	}

	snapshot := domain.PositionSnapshot{Pair: cfg.Pair}

	for _, fill := range fills {
		if !fill.Completed() {
			continue
		}

		value := fill.Quantity.Mul(fill.Price)

		switch fill.Side {
		case domain.SideBuy:
			feeQty := fill.Quantity.Mul(feeRate)
			snapshot.Quantity = snapshot.Quantity.Add(fill.Quantity.Sub(feeQty))
			snapshot.CostBasis = snapshot.CostBasis.Add(value)
			snapshot.FeesPaid = snapshot.FeesPaid.Add(feeQty.Mul(fill.Price))
		case domain.SideSell:
			fee := value.Mul(feeRate)
			snapshot.Quantity = snapshot.Quantity.Sub(fill.Quantity)
			snapshot.CostBasis = snapshot.CostBasis.Sub(value.Sub(fee))
			snapshot.FeesPaid = snapshot.FeesPaid.Add(fee)
		default:
			t.logger.Warn("fill with unknown side skipped",
				zap.String("account", fill.Account),
				zap.String("side", string(fill.Side)))
			continue
		}
		snapshot.FillCount++

		// no short positions: a SELL beyond the held quantity is
		// clamped rather than driving the position negative
		if snapshot.Quantity.IsNegative() {
			t.logger.Warn("ledger would produce a negative position, clamping",
				zap.String("account", fill.Account),
				zap.String("quantity", snapshot.Quantity.String()))
			snapshot.Quantity = decimal.Zero
		}
		if snapshot.CostBasis.IsNegative() {
			snapshot.CostBasis = decimal.Zero
		}
	}

	if snapshot.Quantity.IsPositive() {
		snapshot.AveragePrice = snapshot.CostBasis.Div(snapshot.Quantity)
	} else {
		snapshot.CostBasis = decimal.Zero
		snapshot.AveragePrice = decimal.Zero
	}

	return domain.NewPositionResult(snapshot)
}
