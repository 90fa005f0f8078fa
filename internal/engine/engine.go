// Package engine orchestrates the per-account trading loop: reload
// config, fetch market data, rebuild the position, decide, size,
// risk-check, execute, persist. It guarantees at most one active loop
// per account and isolates every failure to a single cycle.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/internal/events"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/services/risk"
	"github.com/wardenbot/warden/internal/services/trader"
	"go.uber.org/zap"
)

const (
	// cycle intervals are clamped to a sane range
	minCycleInterval = 10 * time.Second
	maxCycleInterval = time.Hour

	defaultCandleInterval = "1h"
	defaultCandleLimit    = 100
)

// CandleSource fetches a candle window for a pair.
type CandleSource interface {
	FetchWindow(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}

// PriceSource fetches the current price for a pair.
type PriceSource interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// TraderProvider resolves the order executor for an account config.
type TraderProvider interface {
	TraderFor(cfg *domain.StrategyConfig) (trader.Trader, error)
}

// FillStore is the append-only fill ledger.
type FillStore interface {
	Save(fill domain.Fill) error
	ListFills(account string, pair domain.Pair) ([]domain.Fill, error)
}

// ConfigStore owns the mutable per-account strategy config.
type ConfigStore interface {
	Load(account string) (domain.StrategyConfig, bool, error)
	Save(cfg domain.StrategyConfig) error
}

// AuditStore persists the per-cycle audit trail.
type AuditStore interface {
	Save(record domain.AuditRecord) error
}

// DecisionSource turns a candle window into a decision.
type DecisionSource interface {
	Evaluate(candles []domain.Candle, cfg *domain.StrategyConfig, holding bool) domain.Decision
}

// PositionSource rebuilds a position from the ledger.
type PositionSource interface {
	Reconstruct(fills []domain.Fill, cfg *domain.StrategyConfig) domain.PositionResult
}

// Deps are the collaborators of the engine.
type Deps struct {
	Candles  CandleSource
	Prices   PriceSource
	Traders  TraderProvider
	Fills    FillStore
	Configs  ConfigStore
	Audit    AuditStore
	Signal   DecisionSource
	Tracker  PositionSource
	Guard    *risk.Guard
	Notifier *notify.Notifier
	Events   *events.Broadcaster
	Logger   *zap.Logger
}

// loopHandle is one account's running task: cancel plus a done channel
// to join on.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *loopHandle) alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Engine manages one control loop per account.
type Engine struct {
	deps Deps

	candleInterval string
	candleLimit    int

	mu    sync.Mutex
	loops map[string]*loopHandle
}

// New creates an Engine.
func New(deps Deps) *Engine {
	return &Engine{
		deps:           deps,
		candleInterval: defaultCandleInterval,
		candleLimit:    defaultCandleLimit,
		loops:          make(map[string]*loopHandle),
	}
}

// SetCandleWindow overrides the candle interval and window size used
// when fetching market data.
func (e *Engine) SetCandleWindow(interval string, limit int) {
	if interval != "" {
		e.candleInterval = interval
	}
	if limit > 0 {
		e.candleLimit = limit
	}
}

// Start launches the control loop for an account. Starting a running
// account is a no-op; starting after the loop died cleans up and
// restarts. With continuous=false a single cycle runs synchronously.
func (e *Engine) Start(ctx context.Context, account string, continuous bool, interval time.Duration) (string, error) {
	cfg, found, err := e.deps.Configs.Load(account)
	if err != nil {
		return "", errors.Wrapf(err, "load config for %s", account)
	}
	if !found {
		return "", errors.Errorf("no config for account %s", account)
	}

	if !continuous {
		if err := e.runCycle(ctx, account); err != nil && !errors.Is(err, errHalted) {
			return "error", err
		}
		return "completed", nil
	}

	if interval <= 0 {
		interval = cfg.CycleInterval
	}
	interval = clampInterval(interval)

	e.mu.Lock()
	defer e.mu.Unlock()

	if handle, ok := e.loops[account]; ok {
		if handle.alive() {
			return "already running", nil
		}
		delete(e.loops, account)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	handle := &loopHandle{cancel: cancel, done: make(chan struct{})}
	e.loops[account] = handle

	go e.run(loopCtx, account, interval, handle)

	return "running", nil
}

// Stop cancels the account's loop and waits for it to finish.
func (e *Engine) Stop(account string) string {
	e.mu.Lock()
	handle, ok := e.loops[account]
	if ok {
		delete(e.loops, account)
	}
	e.mu.Unlock()

	if !ok {
		return "not running"
	}

	handle.cancel()
	<-handle.done
	return "stopped"
}

// Running reports whether the account's loop is alive.
func (e *Engine) Running(account string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	handle, ok := e.loops[account]
	return ok && handle.alive()
}

// Status describes one account's loop and risk state.
type Status struct {
	Account string            `json:"account"`
	State   string            `json:"state"`
	Risk    domain.RiskStatus `json:"risk"`
}

// StatusFor returns the current status of an account.
func (e *Engine) StatusFor(account string) (Status, error) {
	cfg, found, err := e.deps.Configs.Load(account)
	if err != nil {
		return Status{}, errors.Wrapf(err, "load config for %s", account)
	}
	if !found {
		cfg = domain.DefaultStrategyConfig(account, domain.Pair{})
	}

	state := "stopped"
	if e.Running(account) {
		state = "running"
	}

	return Status{
		Account: account,
		State:   state,
		Risk:    e.deps.Guard.StatusFor(account, &cfg),
	}, nil
}

// ResetKillSwitchBaseline re-arms a halted account relative to a new
// loss reference and persists the baseline to the config record.
func (e *Engine) ResetKillSwitchBaseline(account string, plPercent float64) (string, error) {
	cfg, found, err := e.deps.Configs.Load(account)
	if err != nil {
		return "", errors.Wrapf(err, "load config for %s", account)
	}
	if !found {
		return "", errors.Errorf("no config for account %s", account)
	}

	e.deps.Guard.Reset(account, &plPercent)

	cfg.KillSwitchBaseline = &plPercent
	if err := e.deps.Configs.Save(cfg); err != nil {
		return "", errors.Wrapf(err, "persist baseline for %s", account)
	}

	e.deps.Events.Publish(domain.Event{
		Kind:      domain.EventKindStatus,
		Account:   account,
		Timestamp: time.Now(),
		Payload:   map[string]float64{"baseline_percent": plPercent},
	})

	return "armed", nil
}

// Preview describes a dry-run decision without execution.
type Preview struct {
	Decision domain.Decision  `json:"decision"`
	Plan     domain.OrderPlan `json:"plan"`
	Price    decimal.Decimal  `json:"price"`
}

// PreviewDecision runs one full decision pipeline for the account
// without persisting or executing anything.
func (e *Engine) PreviewDecision(ctx context.Context, account string) (Preview, error) {
	cycle, err := e.prepareCycle(ctx, account)
	if err != nil {
		return Preview{}, err
	}

	decision := e.deps.Signal.Evaluate(cycle.candles, &cycle.cfg, cycle.snapshot.Quantity.IsPositive())
	decision, verdict := e.deps.Guard.ApplyOverrides(decision, cycle.snapshot, cycle.price, &cycle.cfg)
	plan := e.plan(decision, verdict, cycle.snapshot, cycle.price, &cycle.cfg)

	return Preview{Decision: decision, Plan: plan, Price: cycle.price}, nil
}

// StopAll stops every running loop, joining each.
func (e *Engine) StopAll() {
	e.mu.Lock()
	handles := make(map[string]*loopHandle, len(e.loops))
	for account, handle := range e.loops {
		handles[account] = handle
	}
	e.loops = make(map[string]*loopHandle)
	e.mu.Unlock()

	for account, handle := range handles {
		handle.cancel()
		<-handle.done
		e.deps.Logger.Info("loop stopped", zap.String("account", account))
	}
}

// run is the loop body for one account. The first cycle runs
// immediately, subsequent ones on the ticker.
func (e *Engine) run(ctx context.Context, account string, interval time.Duration, handle *loopHandle) {
	defer close(handle.done)

	logger := e.deps.Logger.With(zap.String("account", account))
	logger.Info("control loop started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.runCycle(ctx, account); err != nil {
			if errors.Is(err, errHalted) {
				logger.Warn("control loop halted by kill-switch")
				return
			}
			if ctx.Err() != nil {
				logger.Info("control loop cancelled")
				return
			}
			// cycle-scoped failure: log and wait for the next tick
			logger.Error("cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logger.Info("control loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func clampInterval(interval time.Duration) time.Duration {
	if interval < minCycleInterval {
		return minCycleInterval
	}
	if interval > maxCycleInterval {
		return maxCycleInterval
	}
	return interval
}
