package domain

import "github.com/shopspring/decimal"

// PositionSnapshot is the current holding derived from the fill ledger.
// It is recomputed in full every cycle and never cached.
type PositionSnapshot struct {
	Pair         Pair
	Quantity     decimal.Decimal
	CostBasis    decimal.Decimal
	AveragePrice decimal.Decimal
	FeesPaid     decimal.Decimal
	FillCount    int
}

// Value is the cost-basis value of the position in quote currency.
func (s *PositionSnapshot) Value() decimal.Decimal {
	return s.CostBasis
}

// MarketValue values the held quantity at the given price.
func (s *PositionSnapshot) MarketValue(price decimal.Decimal) decimal.Decimal {
	return s.Quantity.Mul(price)
}

// UnrealizedPL returns the open profit or loss at the given price.
func (s *PositionSnapshot) UnrealizedPL(price decimal.Decimal) decimal.Decimal {
	if !s.Quantity.IsPositive() {
		return decimal.Zero
	}
	return s.MarketValue(price).Sub(s.CostBasis)
}

// PLPercent returns the open profit or loss as a percent of cost basis.
func (s *PositionSnapshot) PLPercent(price decimal.Decimal) decimal.Decimal {
	if !s.Quantity.IsPositive() || !s.CostBasis.IsPositive() {
		return decimal.Zero
	}
	return s.UnrealizedPL(price).Div(s.CostBasis).Mul(decimal.NewFromInt(100))
}

// PositionResult is the outcome of reconstructing a position from the
// ledger. A fresh paper account with no fills yields a bootstrap result
// carrying the configured budget; the caller resolves it into a concrete
// snapshot once the current price is known.
type PositionResult struct {
	snapshot  PositionSnapshot
	bootstrap bool
	budget    decimal.Decimal
}

// NewPositionResult wraps a reconstructed snapshot.
func NewPositionResult(snapshot PositionSnapshot) PositionResult {
	return PositionResult{snapshot: snapshot}
}

// NewBootstrapResult signals that the ledger is empty under paper mode
// and an implied starting allocation should be seeded.
func NewBootstrapResult(pair Pair, budget decimal.Decimal) PositionResult {
	return PositionResult{bootstrap: true, budget: budget, snapshot: PositionSnapshot{Pair: pair}}
}

// NeedsBootstrap reports whether the caller must resolve the result
// with a current price before using it.
func (r PositionResult) NeedsBootstrap() bool {
	return r.bootstrap
}

// Budget returns the configured budget carried by a bootstrap result.
func (r PositionResult) Budget() decimal.Decimal {
	return r.budget
}

// Snapshot returns the reconstructed snapshot. For a bootstrap result
// it is the empty snapshot; call Resolve first.
func (r PositionResult) Snapshot() PositionSnapshot {
	return r.snapshot
}

// Resolve converts a bootstrap result into an implied 50/50 cash/asset
// allocation at the given price, so a fresh simulated account does not
// appear all-cash before its first decision. Non-bootstrap results are
// returned unchanged.
func (r PositionResult) Resolve(price decimal.Decimal) PositionSnapshot {
	if !r.bootstrap || !price.IsPositive() {
		return r.snapshot
	}

	half := r.budget.Div(decimal.NewFromInt(2))
	snapshot := r.snapshot
	snapshot.Quantity = half.Div(price)
	snapshot.CostBasis = half
	snapshot.AveragePrice = price
	return snapshot
}
