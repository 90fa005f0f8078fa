// Package signal turns a candle window into a directional decision with
// a confidence score. Two interchangeable modes are provided: a weighted
// indicator vote and a gated two-model ensemble. Both are pure functions
// of their inputs and safe to run concurrently across accounts.
package signal

import (
	"fmt"

	"github.com/wardenbot/warden/internal/domain"
	"go.uber.org/zap"
)

// Ensemble evaluates market data into per-cycle decisions.
type Ensemble struct {
	logger *zap.Logger
}

// NewEnsemble creates an Ensemble.
func NewEnsemble(logger *zap.Logger) *Ensemble {
	return &Ensemble{logger: logger}
}

// Evaluate produces a Decision for the given candle window. holding
// reports whether the account currently models a long position; SELL is
// never proposed without one in range-bound and gated modes.
func (e *Ensemble) Evaluate(candles []domain.Candle, cfg *domain.StrategyConfig, holding bool) domain.Decision {
	if len(candles) == 0 {
		return domain.HoldDecision("no market data")
	}

	if cfg.AdvancedMode {
		return e.evaluateGated(candles, holding)
	}
	return e.evaluateVotes(candles, cfg, holding)
}

// evaluateVotes runs the weighted indicator vote, optionally
// short-circuited by the range-bound tactical mode.
func (e *Ensemble) evaluateVotes(candles []domain.Candle, cfg *domain.StrategyConfig, holding bool) domain.Decision {
	closes := domain.Closes(candles)
	diagnostics := make(map[string]string)

	var votes []domain.Vote

	if vote, err := rsiVote(closes); err != nil {
		diagnostics["rsi"] = err.Error()
	} else {
		votes = append(votes, vote)
	}

	if vote, err := smaVote(candles, closes); err != nil {
		diagnostics["sma_cross"] = err.Error()
	} else {
		votes = append(votes, vote)
	}

	if vote, err := macdVote(closes); err != nil {
		diagnostics["macd"] = err.Error()
	} else {
		votes = append(votes, vote)
	}

	if vote, ok, err := bollingerVote(closes); err != nil {
		diagnostics["bollinger"] = err.Error()
	} else if ok {
		votes = append(votes, vote)
	}

	if len(votes) == 0 {
		e.logger.Warn("all indicators failed", zap.Int("candles", len(candles)))
		decision := domain.HoldDecision("all indicators failed")
		decision.Diagnostics = diagnostics
		return decision
	}

	action, confidence := reduce(votes)
	decision := domain.Decision{
		Action:      action,
		Confidence:  confidence,
		Reason:      describeVotes(votes, action),
		Diagnostics: diagnostics,
	}

	if cfg.RangeBoundMode {
		if override, ok := rangeBoundSignal(candles, closes, holding, diagnostics); ok && override.Confidence > rangeOverrideThreshold {
			e.logger.Debug("range-bound override",
				zap.String("action", override.Action.String()),
				zap.Float64("confidence", override.Confidence))
			override.Diagnostics = diagnostics
			return override
		}
	}

	return decision
}

func describeVotes(votes []domain.Vote, winner domain.Action) string {
	buy, sell, hold := 0, 0, 0
	for _, v := range votes {
		switch v.Action {
		case domain.ActionBuy:
			buy++
		case domain.ActionSell:
			sell++
		default:
			hold++
		}
	}
	return fmt.Sprintf("indicator vote %s (buy=%d sell=%d hold=%d)", winner.String(), buy, sell, hold)
}
