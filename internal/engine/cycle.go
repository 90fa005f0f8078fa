package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/services/sizer"
	"github.com/wardenbot/warden/internal/services/trader"
	"go.uber.org/zap"
)

// errHalted terminates the loop after a kill-switch trigger.
var errHalted = errors.New("kill-switch halted")

// cycleData is everything one cycle needs, fetched up front.
type cycleData struct {
	cfg       domain.StrategyConfig
	candles   []domain.Candle
	price     decimal.Decimal
	snapshot  domain.PositionSnapshot
	bootstrap bool
}

// prepareCycle reloads config and fetches market data and the position
// for one cycle. No writes happen here, so PreviewDecision shares it.
func (e *Engine) prepareCycle(ctx context.Context, account string) (cycleData, error) {
	cfg, found, err := e.deps.Configs.Load(account)
	if err != nil {
		return cycleData{}, errors.Wrapf(err, "load config for %s", account)
	}
	if !found {
		return cycleData{}, errors.Errorf("no config for account %s", account)
	}

	candles, err := e.deps.Candles.FetchWindow(ctx, cfg.Pair, e.candleInterval, e.candleLimit)
	if err != nil {
		return cycleData{}, errors.Wrap(err, "fetch candles")
	}

	price, err := e.deps.Prices.GetPrice(ctx, cfg.Pair)
	if err != nil {
		return cycleData{}, errors.Wrap(err, "fetch price")
	}

	fills, err := e.deps.Fills.ListFills(account, cfg.Pair)
	if err != nil {
		return cycleData{}, errors.Wrap(err, "load fills")
	}

	result := e.deps.Tracker.Reconstruct(fills, &cfg)

	return cycleData{
		cfg:       cfg,
		candles:   candles,
		price:     price,
		snapshot:  result.Resolve(price),
		bootstrap: result.NeedsBootstrap(),
	}, nil
}

// runCycle executes one full decision cycle for the account. Any error
// returned is cycle-scoped: the loop logs it and waits for the next
// tick. Only errHalted terminates the loop.
func (e *Engine) runCycle(ctx context.Context, account string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("cycle panicked: %v", r)
		}
	}()

	logger := e.deps.Logger.With(zap.String("account", account))

	cfg, found, err := e.deps.Configs.Load(account)
	if err != nil {
		return errors.Wrapf(err, "load config for %s", account)
	}
	if !found {
		return errors.Errorf("no config for account %s", account)
	}
	if !cfg.Enabled {
		logger.Debug("account disabled, skipping cycle")
		return nil
	}

	if e.deps.Guard.Halted(account) {
		return errHalted
	}

	cycle, err := e.prepareCycle(ctx, account)
	if err != nil {
		return err
	}

	if cycle.bootstrap {
		if err := e.seedBootstrapFill(account, &cycle); err != nil {
			return errors.Wrap(err, "seed paper allocation")
		}
	}

	// kill-switch before anything else this cycle
	pl := cycle.snapshot.PLPercent(cycle.price)
	ks := e.deps.Guard.EvaluateKillSwitch(account, &cycle.cfg, pl)
	if ks.Halted {
		e.handleHalt(ctx, account, cycle, ks.Reason, ks.TriggeredAt)
		return errHalted
	}

	holding := cycle.snapshot.Quantity.IsPositive()
	decision := e.deps.Signal.Evaluate(cycle.candles, &cycle.cfg, holding)
	decision, verdict := e.deps.Guard.ApplyOverrides(decision, cycle.snapshot, cycle.price, &cycle.cfg)
	plan := e.plan(decision, verdict, cycle.snapshot, cycle.price, &cycle.cfg)

	e.deps.Events.Publish(domain.Event{
		Kind:      domain.EventKindDecision,
		Account:   account,
		Timestamp: time.Now(),
		Payload:   decision,
	})

	if decision.Action == domain.ActionHold || !plan.CanExecute {
		e.recordAudit(account, cycle, domain.AuditOutcomeHold, decision, plan, plan.Reason)
		return nil
	}

	if verdict == domain.RiskVerdictPass && decision.Confidence < cycle.cfg.MinConfidence {
		reason := fmt.Sprintf("confidence %.2f below minimum %.2f", decision.Confidence, cycle.cfg.MinConfidence)
		e.recordAudit(account, cycle, domain.AuditOutcomeSkipped, decision, plan, reason)
		return nil
	}

	return e.execute(ctx, account, cycle, decision, plan, logger)
}

// execute places the order and persists the fill. An insufficient
// balance rejection degrades to a skipped outcome instead of an error.
func (e *Engine) execute(ctx context.Context, account string, cycle cycleData, decision domain.Decision, plan domain.OrderPlan, logger *zap.Logger) error {
	quantity := plan.StepValue.Div(cycle.price)
	// a sell value is a share of cost basis; converting it at a market
	// price below the average price would overshoot the holding
	if decision.Action == domain.ActionSell && quantity.GreaterThan(cycle.snapshot.Quantity) {
		quantity = cycle.snapshot.Quantity
	}

	if !cycle.cfg.PaperTrading {
		exec, err := e.deps.Traders.TraderFor(&cycle.cfg)
		if err != nil {
			return errors.Wrap(err, "resolve trader")
		}

		if decision.Action == domain.ActionBuy {
			err = exec.Buy(ctx, quantity)
		} else {
			err = exec.Sell(ctx, quantity)
		}
		if err != nil {
			if errors.Is(err, trader.ErrInsufficientBalance) {
				logger.Warn("order rejected for insufficient balance, skipping trade", zap.Error(err))
				e.recordAudit(account, cycle, domain.AuditOutcomeSkipped, decision, plan, "insufficient balance")
				return nil
			}
			e.recordAudit(account, cycle, domain.AuditOutcomeError, decision, plan, err.Error())
			e.deps.Notifier.Notify(ctx, account, notify.KindFailure,
				"order placement failed",
				fmt.Sprintf("%s %s of %s failed: %v", decision.Action, plan.StepValue.Round(2), cycle.cfg.Pair.String(), err))
			return errors.Wrap(err, "place order")
		}
	}

	fill := domain.Fill{
		ID:        uuid.NewString(),
		Account:   account,
		Pair:      cycle.cfg.Pair,
		Side:      sideFor(decision.Action),
		Quantity:  quantity,
		Price:     cycle.price,
		Status:    fillStatus(cycle.cfg.PaperTrading),
		Timestamp: time.Now(),
	}
	if err := e.deps.Fills.Save(fill); err != nil {
		return errors.Wrap(err, "persist fill")
	}

	logger.Info("trade executed",
		zap.String("action", decision.Action.String()),
		zap.String("value", plan.StepValue.Round(2).String()),
		zap.String("price", cycle.price.String()),
		zap.Bool("paper", cycle.cfg.PaperTrading))

	e.recordAudit(account, cycle, domain.AuditOutcomeExecuted, decision, plan, plan.Reason)

	e.deps.Events.Publish(domain.Event{
		Kind:      domain.EventKindTrade,
		Account:   account,
		Timestamp: time.Now(),
		Payload:   fill,
	})
	e.deps.Notifier.Notify(ctx, account, notify.KindTrade,
		fmt.Sprintf("%s executed", decision.Action),
		fmt.Sprintf("%s $%s of %s at %s: %s", decision.Action, plan.StepValue.Round(2), cycle.cfg.Pair.String(), cycle.price, decision.Reason))

	if decision.Action == domain.ActionBuy && plan.AfterFillPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		e.deps.Notifier.Notify(ctx, account, notify.KindPositionSize,
			"position at capacity",
			fmt.Sprintf("%s position reached 100%% of its $%s cap", cycle.cfg.Pair.String(), cycle.cfg.MaxPositionValue().Round(2)))
	}

	return nil
}

// plan sizes the order. A stop-loss force-exit bypasses incremental
// sizing and liquidates the whole position at its market value, so the
// converted quantity equals the held quantity.
func (e *Engine) plan(decision domain.Decision, verdict domain.RiskVerdict, snapshot domain.PositionSnapshot, price decimal.Decimal, cfg *domain.StrategyConfig) domain.OrderPlan {
	if verdict == domain.RiskVerdictForceExit {
		return domain.OrderPlan{
			Action:             domain.ActionSell,
			StepValue:          snapshot.MarketValue(price),
			CurrentFillPercent: decimal.NewFromInt(100),
			AfterFillPercent:   decimal.Zero,
			CanExecute:         snapshot.Quantity.IsPositive(),
			Reason:             decision.Reason,
		}
	}
	return sizer.Plan(decision, snapshot, cfg)
}

// handleHalt persists the trigger, records the halt, and raises the
// high-priority notifications.
func (e *Engine) handleHalt(ctx context.Context, account string, cycle cycleData, reason string, triggeredAt time.Time) {
	cfg := cycle.cfg
	cfg.KillSwitchLastTrigger = &triggeredAt
	if err := e.deps.Configs.Save(cfg); err != nil {
		e.deps.Logger.Error("persist kill-switch trigger failed",
			zap.String("account", account), zap.Error(err))
	}

	e.recordAudit(account, cycle, domain.AuditOutcomeHalted, domain.HoldDecision(reason), domain.OrderPlan{}, reason)

	e.deps.Events.Publish(domain.Event{
		Kind:      domain.EventKindKillSwitch,
		Account:   account,
		Timestamp: triggeredAt,
		Priority:  "critical",
		Payload:   map[string]string{"reason": reason},
	})
	e.deps.Notifier.Notify(ctx, account, notify.KindFailure,
		"kill-switch triggered",
		fmt.Sprintf("trading halted for %s: %s", cycle.cfg.Pair.String(), reason))
}

// seedBootstrapFill records an implied 50/50 cash/asset split for a
// fresh paper account so it does not start all-cash.
func (e *Engine) seedBootstrapFill(account string, cycle *cycleData) error {
	half := cycle.cfg.Budget.Div(decimal.NewFromInt(2))
	seed := domain.Fill{
		ID:        uuid.NewString(),
		Account:   account,
		Pair:      cycle.cfg.Pair,
		Side:      domain.SideBuy,
		Quantity:  half.Div(cycle.price),
		Price:     cycle.price,
		Status:    domain.FillStatusPaper,
		Timestamp: time.Now(),
	}
	if err := e.deps.Fills.Save(seed); err != nil {
		return err
	}

	e.deps.Logger.Info("seeded implied starting allocation",
		zap.String("account", account),
		zap.String("value", half.Round(2).String()),
		zap.String("price", cycle.price.String()))
	return nil
}

func (e *Engine) recordAudit(account string, cycle cycleData, outcome domain.AuditOutcome, decision domain.Decision, plan domain.OrderPlan, reason string) {
	record := domain.AuditRecord{
		Account:    account,
		Pair:       cycle.cfg.Pair.String(),
		Timestamp:  time.Now(),
		Outcome:    outcome,
		Action:     decision.Action.String(),
		Confidence: decision.Confidence,
		Price:      cycle.price,
		StepValue:  plan.StepValue,
		Reason:     reason,
		Paper:      cycle.cfg.PaperTrading,
	}
	if err := e.deps.Audit.Save(record); err != nil {
		e.deps.Logger.Error("persist audit record failed",
			zap.String("account", account), zap.Error(err))
	}
}

func sideFor(action domain.Action) domain.Side {
	if action == domain.ActionSell {
		return domain.SideSell
	}
	return domain.SideBuy
}

func fillStatus(paper bool) domain.FillStatus {
	if paper {
		return domain.FillStatusPaper
	}
	return domain.FillStatusLive
}
