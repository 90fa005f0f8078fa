// Package risk enforces capital preservation: a hard stop-loss, a
// trailing take-profit, and a consecutive-breach kill-switch with
// cooldown. The guard can override or halt the strategy regardless of
// what the signal ensemble proposes.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"go.uber.org/zap"
)

// breachLookback is the sliding window for counting kill-switch
// breaches. Deliberately independent of the configured cooldown.
const breachLookback = time.Hour

// accountState is the per-account kill-switch state. In-memory only:
// a process restart re-arms every account.
type accountState struct {
	halted      bool
	breaches    []time.Time
	lastTrigger *time.Time
	baseline    *float64
}

// Guard owns kill-switch state for all accounts. Each account's loop is
// the only writer of its own state; the management layer reads through
// StatusFor.
type Guard struct {
	logger *zap.Logger

	mu       sync.Mutex
	accounts map[string]*accountState

	now func() time.Time
}

// NewGuard creates a Guard.
func NewGuard(logger *zap.Logger) *Guard {
	return &Guard{
		logger:   logger,
		accounts: make(map[string]*accountState),
		now:      time.Now,
	}
}

// KillSwitchResult reports the outcome of one kill-switch evaluation.
type KillSwitchResult struct {
	Halted      bool
	BreachCount int
	TriggeredAt time.Time
	Reason      string
}

// Halted reports whether the account is in the terminal halted state.
func (g *Guard) Halted(account string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(account).halted
}

// EvaluateKillSwitch runs one breach evaluation against the effective
// loss, which is the unrealized P&L percent minus the operator-set
// baseline. While the cooldown after a trigger is running, evaluation
// is skipped entirely. Reaching the configured consecutive breach count
// within the lookback window transitions the account to halted.
func (g *Guard) EvaluateKillSwitch(account string, cfg *domain.StrategyConfig, plPercent decimal.Decimal) KillSwitchResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.stateLocked(account)
	if st.halted {
		return KillSwitchResult{Halted: true, Reason: "kill-switch already triggered, manual reset required"}
	}

	now := g.now()

	if st.lastTrigger != nil {
		cooldown := time.Duration(cfg.KillSwitchCooldownMinutes) * time.Minute
		if now.Sub(*st.lastTrigger) < cooldown {
			return KillSwitchResult{Reason: "cooldown active, breach evaluation skipped"}
		}
	}

	effective := plPercent
	if baseline := g.baselineLocked(st, cfg); baseline != 0 {
		effective = effective.Sub(decimal.NewFromFloat(baseline))
	}

	threshold := cfg.KillSwitchMaxLossPercent.Neg()
	if effective.GreaterThanOrEqual(threshold) {
		// a non-breach cycle resets the consecutive count
		st.breaches = nil
		return KillSwitchResult{Reason: "within loss tolerance"}
	}

	st.breaches = append(st.breaches, now)
	cutoff := now.Add(-breachLookback)
	pruned := st.breaches[:0]
	for _, ts := range st.breaches {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	st.breaches = pruned

	count := len(st.breaches)
	g.logger.Warn("kill-switch breach",
		zap.String("account", account),
		zap.String("effective_pl_percent", effective.Round(2).String()),
		zap.Int("breach_count", count),
		zap.Int("threshold", cfg.KillSwitchConsecutiveBreaches))

	if count < cfg.KillSwitchConsecutiveBreaches {
		return KillSwitchResult{
			BreachCount: count,
			Reason:      fmt.Sprintf("breach %d of %d within window", count, cfg.KillSwitchConsecutiveBreaches),
		}
	}

	st.halted = true
	st.lastTrigger = &now
	st.breaches = nil

	g.logger.Error("kill-switch triggered, halting account",
		zap.String("account", account),
		zap.String("effective_pl_percent", effective.Round(2).String()))

	return KillSwitchResult{
		Halted:      true,
		BreachCount: count,
		TriggeredAt: now,
		Reason: fmt.Sprintf("%d consecutive breaches of -%s%% loss limit",
			count, cfg.KillSwitchMaxLossPercent.String()),
	}
}

// ApplyOverrides applies the hard stop-loss and trailing take-profit on
// top of the ensemble decision. The stop-loss takes precedence over
// everything else in the cycle.
func (g *Guard) ApplyOverrides(ensemble domain.Decision, snapshot domain.PositionSnapshot, price decimal.Decimal, cfg *domain.StrategyConfig) (domain.Decision, domain.RiskVerdict) {
	if !snapshot.Quantity.IsPositive() {
		return ensemble, domain.RiskVerdictPass
	}

	pl := snapshot.PLPercent(price)

	if pl.LessThan(cfg.HardStopLossPercent.Neg()) {
		g.logger.Warn("hard stop-loss hit, forcing full exit",
			zap.String("pl_percent", pl.Round(2).String()),
			zap.String("threshold", cfg.HardStopLossPercent.String()))
		return domain.Decision{
			Action:     domain.ActionSell,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("stop-loss: P&L %s%% below -%s%% threshold, full exit", pl.Round(2), cfg.HardStopLossPercent),
		}, domain.RiskVerdictForceExit
	}

	lowConfidence := ensemble.Action == domain.ActionHold || ensemble.Confidence < cfg.MinConfidence
	if pl.GreaterThanOrEqual(cfg.TrailingTakeProfitPercent) && lowConfidence {
		return domain.Decision{
			Action:     domain.ActionSell,
			Confidence: 0.5,
			Reason:     fmt.Sprintf("take-profit: P&L %s%% above %s%% threshold, banking a partial exit", pl.Round(2), cfg.TrailingTakeProfitPercent),
		}, domain.RiskVerdictTakeProfit
	}

	return ensemble, domain.RiskVerdictPass
}

// Reset clears the halted state back to armed, optionally rebaselining
// the loss reference. The last trigger time is kept so the cooldown
// still suppresses evaluation immediately after a reset.
func (g *Guard) Reset(account string, baseline *float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.stateLocked(account)
	st.halted = false
	st.breaches = nil
	if baseline != nil {
		st.baseline = baseline
	}

	g.logger.Info("kill-switch reset", zap.String("account", account))
}

// StatusFor returns the externally readable risk state of an account.
func (g *Guard) StatusFor(account string, cfg *domain.StrategyConfig) domain.RiskStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.stateLocked(account)

	status := domain.RiskStatus{
		State:           domain.RiskStateArmed,
		BreachCount:     len(st.breaches),
		BreachThreshold: cfg.KillSwitchConsecutiveBreaches,
		LastTrigger:     st.lastTrigger,
	}

	if baseline := g.baselineLocked(st, cfg); baseline != 0 {
		status.BaselinePercent = &baseline
	}

	switch {
	case st.halted:
		status.State = domain.RiskStateHalted
	case st.lastTrigger != nil:
		cooldown := time.Duration(cfg.KillSwitchCooldownMinutes) * time.Minute
		until := st.lastTrigger.Add(cooldown)
		if g.now().Before(until) {
			status.State = domain.RiskStateCooldown
			status.CooldownUntil = &until
		}
	}

	return status
}

func (g *Guard) stateLocked(account string) *accountState {
	st, ok := g.accounts[account]
	if !ok {
		st = &accountState{}
		g.accounts[account] = st
	}
	return st
}

// baselineLocked prefers the in-memory baseline set by a manual reset,
// falling back to the persisted config value.
func (g *Guard) baselineLocked(st *accountState, cfg *domain.StrategyConfig) float64 {
	if st.baseline != nil {
		return *st.baseline
	}
	if cfg.KillSwitchBaseline != nil {
		return *cfg.KillSwitchBaseline
	}
	return 0
}
