package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// StrategyConfig is the mutable per-account configuration record. It is
// owned by the durable store and reloaded at the top of every cycle so
// external edits take effect without a restart.
type StrategyConfig struct {
	Account string `json:"account"`
	Pair    Pair   `json:"pair"`
	Enabled bool   `json:"enabled"`

	Budget              decimal.Decimal `json:"budget"`
	MaxPositionFraction decimal.Decimal `json:"max_position_fraction"`
	MinConfidence       float64         `json:"min_confidence"`
	EntryStepPercent    decimal.Decimal `json:"entry_step_percent"`
	ExitStepPercent     decimal.Decimal `json:"exit_step_percent"`

	HardStopLossPercent       decimal.Decimal `json:"hard_stop_loss_percent"`
	TrailingTakeProfitPercent decimal.Decimal `json:"trailing_take_profit_percent"`

	KillSwitchMaxLossPercent      decimal.Decimal `json:"kill_switch_max_loss_percent"`
	KillSwitchConsecutiveBreaches int             `json:"kill_switch_consecutive_breaches"`
	KillSwitchCooldownMinutes     int             `json:"kill_switch_cooldown_minutes"`
	KillSwitchBaseline            *float64        `json:"kill_switch_baseline,omitempty"`
	KillSwitchLastTrigger         *time.Time      `json:"kill_switch_last_trigger,omitempty"`

	AdvancedMode   bool `json:"advanced_mode"`
	RangeBoundMode bool `json:"range_bound_mode"`
	PaperTrading   bool `json:"paper_trading"`

	CycleInterval time.Duration `json:"cycle_interval"`
}

// MaxPositionValue is the budget capped by the max-position fraction.
func (c *StrategyConfig) MaxPositionValue() decimal.Decimal {
	return c.Budget.Mul(c.MaxPositionFraction)
}

// DefaultStrategyConfig returns a config with the defaults used when an
// account has no persisted record yet.
func DefaultStrategyConfig(account string, pair Pair) StrategyConfig {
	return StrategyConfig{
		Account:                       account,
		Pair:                          pair,
		Enabled:                       true,
		Budget:                        decimal.NewFromInt(10000),
		MaxPositionFraction:           decimal.NewFromFloat(0.95),
		MinConfidence:                 0.5,
		EntryStepPercent:              decimal.NewFromInt(10),
		ExitStepPercent:               decimal.NewFromInt(10),
		HardStopLossPercent:           decimal.NewFromFloat(3.0),
		TrailingTakeProfitPercent:     decimal.NewFromFloat(2.5),
		KillSwitchMaxLossPercent:      decimal.NewFromFloat(5.0),
		KillSwitchConsecutiveBreaches: 3,
		KillSwitchCooldownMinutes:     60,
		PaperTrading:                  true,
		CycleInterval:                 time.Minute,
	}
}

// Validate checks invariants that would make the loop misbehave.
func (c *StrategyConfig) Validate() error {
	if c.Account == "" {
		return errors.New("account is required")
	}
	if !c.Budget.IsPositive() {
		return errors.New("budget must be positive")
	}
	if c.MaxPositionFraction.LessThanOrEqual(decimal.Zero) || c.MaxPositionFraction.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("max_position_fraction must be in (0,1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("min_confidence must be in [0,1]")
	}
	if c.KillSwitchConsecutiveBreaches < 1 {
		return errors.New("kill_switch_consecutive_breaches must be at least 1")
	}
	return nil
}
