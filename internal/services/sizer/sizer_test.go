package sizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/domain"
)

func testConfig() *domain.StrategyConfig {
	return &domain.StrategyConfig{
		Account:             "test",
		Pair:                domain.Pair{From: "BTC", To: "USDT"},
		Budget:              decimal.NewFromInt(10000),
		MaxPositionFraction: decimal.NewFromFloat(0.5),
		EntryStepPercent:    decimal.NewFromInt(10),
		ExitStepPercent:     decimal.NewFromInt(10),
	}
}

func snapshotWithValue(value decimal.Decimal) domain.PositionSnapshot {
	return domain.PositionSnapshot{
		Pair:      domain.Pair{From: "BTC", To: "USDT"},
		Quantity:  decimal.NewFromFloat(0.1),
		CostBasis: value,
	}
}

func TestPlanBuyScalesStepWithConfidence(t *testing.T) {
	// max position 5000, base step 10%, confidence 0.8 scales the step
	// to 13% of max, so the order is worth $650
	plan := Plan(
		domain.Decision{Action: domain.ActionBuy, Confidence: 0.8},
		domain.PositionSnapshot{},
		testConfig(),
	)

	require.True(t, plan.CanExecute)
	assert.Equal(t, domain.ActionBuy, plan.Action)
	assert.True(t, plan.StepValue.Equal(decimal.NewFromInt(650)), "step value %s", plan.StepValue)
	assert.True(t, plan.CurrentFillPercent.IsZero())
	assert.True(t, plan.AfterFillPercent.Equal(decimal.NewFromInt(13)), "after fill %s", plan.AfterFillPercent)
}

func TestPlanBuyConfidenceBounds(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantStep   int64
	}{
		{"zero confidence halves the step", 0, 250},
		{"full confidence is one and a half steps", 1, 750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(
				domain.Decision{Action: domain.ActionBuy, Confidence: tt.confidence},
				domain.PositionSnapshot{},
				testConfig(),
			)
			require.True(t, plan.CanExecute)
			assert.True(t, plan.StepValue.Equal(decimal.NewFromInt(tt.wantStep)), "step value %s", plan.StepValue)
		})
	}
}

func TestPlanBuyRejectsAtFullPosition(t *testing.T) {
	plan := Plan(
		domain.Decision{Action: domain.ActionBuy, Confidence: 0.9},
		snapshotWithValue(decimal.NewFromInt(5000)),
		testConfig(),
	)

	assert.False(t, plan.CanExecute)
	assert.Contains(t, plan.Reason, "100% of max position")
}

func TestPlanBuyCapsFinalIncrement(t *testing.T) {
	// 4800 of 5000 used: a 13% step would overshoot, so only the
	// remaining 200 is bought and the fill lands exactly at 100%
	plan := Plan(
		domain.Decision{Action: domain.ActionBuy, Confidence: 0.8},
		snapshotWithValue(decimal.NewFromInt(4800)),
		testConfig(),
	)

	require.True(t, plan.CanExecute)
	assert.True(t, plan.StepValue.Equal(decimal.NewFromInt(200)), "step value %s", plan.StepValue)
	assert.True(t, plan.AfterFillPercent.Equal(decimal.NewFromInt(100)), "after fill %s", plan.AfterFillPercent)
	assert.Contains(t, plan.Reason, "capped at 100%")
}

func TestPlanSellStepsOffCurrentHolding(t *testing.T) {
	// the sell step is a share of the current holding, not of max:
	// 10% of 2000 at confidence 0.5 is exactly 200
	plan := Plan(
		domain.Decision{Action: domain.ActionSell, Confidence: 0.5},
		snapshotWithValue(decimal.NewFromInt(2000)),
		testConfig(),
	)

	require.True(t, plan.CanExecute)
	assert.Equal(t, domain.ActionSell, plan.Action)
	assert.True(t, plan.StepValue.Equal(decimal.NewFromInt(200)), "step value %s", plan.StepValue)
	assert.True(t, plan.AfterFillPercent.Equal(decimal.NewFromInt(36)), "after fill %s", plan.AfterFillPercent)
}

func TestPlanSellRejectsFlatPosition(t *testing.T) {
	plan := Plan(
		domain.Decision{Action: domain.ActionSell, Confidence: 0.9},
		domain.PositionSnapshot{},
		testConfig(),
	)

	assert.False(t, plan.CanExecute)
	assert.Equal(t, "no position to sell", plan.Reason)
}

func TestPlanHoldNeverExecutes(t *testing.T) {
	plan := Plan(
		domain.Decision{Action: domain.ActionHold, Confidence: 0.9},
		snapshotWithValue(decimal.NewFromInt(2000)),
		testConfig(),
	)

	assert.False(t, plan.CanExecute)
	assert.Equal(t, "HOLD signal, no trade", plan.Reason)
	assert.True(t, plan.CurrentFillPercent.Equal(plan.AfterFillPercent))
}

func TestEffectiveStepNeverExceedsHundred(t *testing.T) {
	step := effectiveStep(decimal.NewFromInt(90), 1)
	assert.True(t, step.Equal(decimal.NewFromInt(100)), "step %s", step)
}
