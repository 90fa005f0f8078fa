package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/domain"
)

func testConfig() *domain.StrategyConfig {
	return &domain.StrategyConfig{
		Account:                       "acct",
		Pair:                          domain.Pair{From: "BTC", To: "USDT"},
		MinConfidence:                 0.5,
		HardStopLossPercent:           decimal.NewFromFloat(3.0),
		TrailingTakeProfitPercent:     decimal.NewFromFloat(2.5),
		KillSwitchMaxLossPercent:      decimal.NewFromFloat(5.0),
		KillSwitchConsecutiveBreaches: 3,
		KillSwitchCooldownMinutes:     60,
	}
}

// testClock lets tests advance the guard's view of time.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestGuard() (*Guard, *testClock) {
	clock := &testClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGuard(zap.NewNop())
	g.now = clock.now
	return g, clock
}

func TestKillSwitchHaltsAfterConsecutiveBreaches(t *testing.T) {
	g, clock := newTestGuard()
	cfg := testConfig()
	loss := decimal.NewFromFloat(-6.0)

	for i := 1; i <= 2; i++ {
		result := g.EvaluateKillSwitch("acct", cfg, loss)
		assert.False(t, result.Halted)
		assert.Equal(t, i, result.BreachCount)
		clock.advance(time.Minute)
	}

	result := g.EvaluateKillSwitch("acct", cfg, loss)
	require.True(t, result.Halted)
	assert.Equal(t, 3, result.BreachCount)
	assert.Contains(t, result.Reason, "3 consecutive breaches")
	assert.True(t, g.Halted("acct"))

	// further evaluation short-circuits until a manual reset
	again := g.EvaluateKillSwitch("acct", cfg, loss)
	assert.True(t, again.Halted)
	assert.Contains(t, again.Reason, "manual reset required")
}

func TestKillSwitchRecoveryClearsBreachCount(t *testing.T) {
	g, clock := newTestGuard()
	cfg := testConfig()

	g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-6.0))
	clock.advance(time.Minute)
	g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-6.0))
	clock.advance(time.Minute)

	// one cycle back inside tolerance resets the consecutive count
	ok := g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-1.0))
	assert.False(t, ok.Halted)
	assert.Equal(t, "within loss tolerance", ok.Reason)

	clock.advance(time.Minute)
	result := g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-6.0))
	assert.False(t, result.Halted)
	assert.Equal(t, 1, result.BreachCount)
}

func TestKillSwitchPrunesOldBreaches(t *testing.T) {
	g, clock := newTestGuard()
	cfg := testConfig()
	loss := decimal.NewFromFloat(-6.0)

	g.EvaluateKillSwitch("acct", cfg, loss)
	clock.advance(61 * time.Minute)
	g.EvaluateKillSwitch("acct", cfg, loss)
	clock.advance(61 * time.Minute)

	// each breach is more than an hour after the last, so the sliding
	// window never accumulates
	result := g.EvaluateKillSwitch("acct", cfg, loss)
	assert.False(t, result.Halted)
	assert.Equal(t, 1, result.BreachCount)
}

func TestKillSwitchCooldownAfterReset(t *testing.T) {
	g, clock := newTestGuard()
	cfg := testConfig()
	loss := decimal.NewFromFloat(-6.0)

	for i := 0; i < 3; i++ {
		g.EvaluateKillSwitch("acct", cfg, loss)
		clock.advance(time.Minute)
	}
	require.True(t, g.Halted("acct"))

	g.Reset("acct", nil)
	assert.False(t, g.Halted("acct"))

	// the trigger time survives the reset, so the cooldown still
	// suppresses evaluation
	suppressed := g.EvaluateKillSwitch("acct", cfg, loss)
	assert.False(t, suppressed.Halted)
	assert.Contains(t, suppressed.Reason, "cooldown active")

	clock.advance(61 * time.Minute)
	resumed := g.EvaluateKillSwitch("acct", cfg, loss)
	assert.False(t, resumed.Halted)
	assert.Equal(t, 1, resumed.BreachCount)
}

func TestKillSwitchBaselineOffsetsLoss(t *testing.T) {
	g, _ := newTestGuard()
	cfg := testConfig()

	baseline := -10.0
	g.Reset("acct", &baseline)

	// a raw -12% loss is only -2% against the rebaselined reference
	result := g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-12.0))
	assert.False(t, result.Halted)
	assert.Equal(t, "within loss tolerance", result.Reason)

	// -16% is -6% effective and counts as a breach
	result = g.EvaluateKillSwitch("acct", cfg, decimal.NewFromFloat(-16.0))
	assert.Equal(t, 1, result.BreachCount)
}

func TestStatusForStateMachine(t *testing.T) {
	g, clock := newTestGuard()
	cfg := testConfig()
	loss := decimal.NewFromFloat(-6.0)

	assert.Equal(t, domain.RiskStateArmed, g.StatusFor("acct", cfg).State)

	for i := 0; i < 3; i++ {
		g.EvaluateKillSwitch("acct", cfg, loss)
		clock.advance(time.Minute)
	}
	assert.Equal(t, domain.RiskStateHalted, g.StatusFor("acct", cfg).State)

	g.Reset("acct", nil)
	status := g.StatusFor("acct", cfg)
	assert.Equal(t, domain.RiskStateCooldown, status.State)
	require.NotNil(t, status.CooldownUntil)

	clock.advance(2 * time.Hour)
	assert.Equal(t, domain.RiskStateArmed, g.StatusFor("acct", cfg).State)
}

func TestApplyOverridesStopLossForcesFullExit(t *testing.T) {
	g, _ := newTestGuard()
	cfg := testConfig()

	snapshot := domain.PositionSnapshot{
		Quantity:  decimal.NewFromInt(1),
		CostBasis: decimal.NewFromInt(100),
	}

	// -4% unrealized against a 3% stop, even a confident BUY is overridden
	ensemble := domain.Decision{Action: domain.ActionBuy, Confidence: 0.95}
	decision, verdict := g.ApplyOverrides(ensemble, snapshot, decimal.NewFromInt(96), cfg)

	assert.Equal(t, domain.RiskVerdictForceExit, verdict)
	assert.Equal(t, domain.ActionSell, decision.Action)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Contains(t, decision.Reason, "stop-loss")
}

func TestApplyOverridesTakeProfitOnWeakSignal(t *testing.T) {
	g, _ := newTestGuard()
	cfg := testConfig()

	snapshot := domain.PositionSnapshot{
		Quantity:  decimal.NewFromInt(1),
		CostBasis: decimal.NewFromInt(100),
	}

	// +3% gain with a HOLD ensemble books a partial exit
	decision, verdict := g.ApplyOverrides(domain.HoldDecision("no edge"), snapshot, decimal.NewFromInt(103), cfg)
	assert.Equal(t, domain.RiskVerdictTakeProfit, verdict)
	assert.Equal(t, domain.ActionSell, decision.Action)
	assert.Equal(t, 0.5, decision.Confidence)

	// a confident BUY suppresses the take-profit and rides the position
	strong := domain.Decision{Action: domain.ActionBuy, Confidence: 0.9}
	decision, verdict = g.ApplyOverrides(strong, snapshot, decimal.NewFromInt(103), cfg)
	assert.Equal(t, domain.RiskVerdictPass, verdict)
	assert.Equal(t, domain.ActionBuy, decision.Action)
}

func TestApplyOverridesIgnoresFlatPosition(t *testing.T) {
	g, _ := newTestGuard()
	cfg := testConfig()

	ensemble := domain.Decision{Action: domain.ActionBuy, Confidence: 0.7}
	decision, verdict := g.ApplyOverrides(ensemble, domain.PositionSnapshot{}, decimal.NewFromInt(50), cfg)

	assert.Equal(t, domain.RiskVerdictPass, verdict)
	assert.Equal(t, ensemble, decision)
}
