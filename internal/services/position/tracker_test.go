package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/domain"
)

var pair = domain.Pair{From: "BTC", To: "USDT"}

func testConfig(paper bool) *domain.StrategyConfig {
	return &domain.StrategyConfig{
		Account:      "acct",
		Pair:         pair,
		Budget:       decimal.NewFromInt(10000),
		PaperTrading: paper,
	}
}

func fill(side domain.Side, quantity, price float64) domain.Fill {
	return domain.Fill{
		Account:   "acct",
		Pair:      pair,
		Side:      side,
		Quantity:  decimal.NewFromFloat(quantity),
		Price:     decimal.NewFromFloat(price),
		Status:    domain.FillStatusPaper,
		Timestamp: time.Now(),
	}
}

func TestReconstructEmptyPaperLedgerBootstraps(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	result := tracker.Reconstruct(nil, testConfig(true))
	require.True(t, result.NeedsBootstrap())

	// resolving at $100 implies half the budget in asset
	snapshot := result.Resolve(decimal.NewFromInt(100))
	assert.True(t, snapshot.Quantity.Equal(decimal.NewFromInt(50)), "quantity %s", snapshot.Quantity)
	assert.True(t, snapshot.CostBasis.Equal(decimal.NewFromInt(5000)), "cost basis %s", snapshot.CostBasis)
	assert.True(t, snapshot.AveragePrice.Equal(decimal.NewFromInt(100)))
}

func TestReconstructEmptyLiveLedgerIsFlat(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	result := tracker.Reconstruct(nil, testConfig(false))
	assert.False(t, result.NeedsBootstrap())

	snapshot := result.Snapshot()
	assert.True(t, snapshot.Quantity.IsZero())
	assert.True(t, snapshot.CostBasis.IsZero())
}

func TestReconstructBuyAppliesFee(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	result := tracker.Reconstruct([]domain.Fill{fill(domain.SideBuy, 1, 100)}, testConfig(true))
	snapshot := result.Snapshot()

	// fee of 0.1% comes off the received quantity; cost basis keeps the
	// full spend
	assert.True(t, snapshot.Quantity.Equal(decimal.NewFromFloat(0.999)), "quantity %s", snapshot.Quantity)
	assert.True(t, snapshot.CostBasis.Equal(decimal.NewFromInt(100)), "cost basis %s", snapshot.CostBasis)
	assert.True(t, snapshot.FeesPaid.Equal(decimal.NewFromFloat(0.1)), "fees %s", snapshot.FeesPaid)
	assert.Equal(t, 1, snapshot.FillCount)
}

func TestReconstructSellReducesCostBasisNetOfFee(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	fills := []domain.Fill{
		fill(domain.SideBuy, 1, 100),
		fill(domain.SideSell, 0.5, 110),
	}
	snapshot := tracker.Reconstruct(fills, testConfig(true)).Snapshot()

	assert.True(t, snapshot.Quantity.Equal(decimal.NewFromFloat(0.499)), "quantity %s", snapshot.Quantity)
	// 100 - (55 - 0.055)
	assert.True(t, snapshot.CostBasis.Equal(decimal.NewFromFloat(45.055)), "cost basis %s", snapshot.CostBasis)
	assert.True(t, snapshot.FeesPaid.Equal(decimal.NewFromFloat(0.155)), "fees %s", snapshot.FeesPaid)
	assert.Equal(t, 2, snapshot.FillCount)
}

func TestReconstructIsDeterministic(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	fills := []domain.Fill{
		fill(domain.SideBuy, 2, 95),
		fill(domain.SideBuy, 1, 105),
		fill(domain.SideSell, 0.7, 120),
	}

	first := tracker.Reconstruct(fills, testConfig(true)).Snapshot()
	second := tracker.Reconstruct(fills, testConfig(true)).Snapshot()

	assert.True(t, first.Quantity.Equal(second.Quantity))
	assert.True(t, first.CostBasis.Equal(second.CostBasis))
	assert.True(t, first.FeesPaid.Equal(second.FeesPaid))
	assert.Equal(t, first.FillCount, second.FillCount)
}

func TestReconstructClampsOversell(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	fills := []domain.Fill{
		fill(domain.SideBuy, 1, 100),
		fill(domain.SideSell, 2, 100),
	}
	snapshot := tracker.Reconstruct(fills, testConfig(true)).Snapshot()

	// no short positions: the ledger is clamped at flat
	assert.True(t, snapshot.Quantity.IsZero(), "quantity %s", snapshot.Quantity)
	assert.True(t, snapshot.CostBasis.IsZero(), "cost basis %s", snapshot.CostBasis)
	assert.True(t, snapshot.AveragePrice.IsZero())
}

func TestReconstructSkipsIncompleteAndUnknownFills(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	pending := fill(domain.SideBuy, 5, 100)
	pending.Status = "pending"

	unknown := fill("SHORT", 5, 100)

	fills := []domain.Fill{pending, unknown, fill(domain.SideBuy, 1, 100)}
	snapshot := tracker.Reconstruct(fills, testConfig(true)).Snapshot()

	assert.True(t, snapshot.Quantity.Equal(decimal.NewFromFloat(0.999)), "quantity %s", snapshot.Quantity)
	assert.Equal(t, 1, snapshot.FillCount)
}
