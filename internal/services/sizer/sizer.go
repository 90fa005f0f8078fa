// Package sizer converts a decision into a bounded incremental order
// plan: buys add a step of the maximum position, sells shave a step off
// the current holding, and the resulting fill always stays in [0%,100%].
package sizer

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Plan sizes one incremental order. Confidence scales the configured
// base step between 0.5x and 1.5x, capped at 100%. Pure function.
func Plan(decision domain.Decision, snapshot domain.PositionSnapshot, cfg *domain.StrategyConfig) domain.OrderPlan {
	maxPosition := cfg.MaxPositionValue()
	currentValue := snapshot.Value()

	currentFill := decimal.Zero
	if maxPosition.IsPositive() {
		currentFill = currentValue.Div(maxPosition).Mul(hundred)
	}

	switch decision.Action {
	case domain.ActionBuy:
		return planBuy(decision, cfg.EntryStepPercent, maxPosition, currentValue, currentFill)
	case domain.ActionSell:
		return planSell(decision, cfg.ExitStepPercent, maxPosition, currentValue, currentFill)
	default:
		return domain.OrderPlan{
			Action:             domain.ActionHold,
			CurrentFillPercent: currentFill.Round(2),
			AfterFillPercent:   currentFill.Round(2),
			CanExecute:         false,
			Reason:             "HOLD signal, no trade",
		}
	}
}

func planBuy(decision domain.Decision, baseStep, maxPosition, currentValue, currentFill decimal.Decimal) domain.OrderPlan {
	step := effectiveStep(baseStep, decision.Confidence)

	if currentFill.GreaterThanOrEqual(hundred) {
		return domain.OrderPlan{
			Action:             domain.ActionBuy,
			CurrentFillPercent: currentFill.Round(2),
			AfterFillPercent:   currentFill.Round(2),
			CanExecute:         false,
			Reason:             "already at 100% of max position, cannot buy more",
		}
	}

	stepValue := maxPosition.Mul(step).Div(hundred)
	afterValue := currentValue.Add(stepValue)
	afterFill := afterValue.Div(maxPosition).Mul(hundred)

	var reason string
	if afterFill.GreaterThan(hundred) {
		stepValue = maxPosition.Sub(currentValue)
		afterFill = hundred
		reason = fmt.Sprintf("final %s%% increment capped at 100%% (adding $%s)", step.Round(2), stepValue.Round(2))
	} else {
		reason = fmt.Sprintf("adding %s%% step ($%s) to existing %s%% position",
			step.Round(2), stepValue.Round(2), currentFill.Round(1))
	}

	return domain.OrderPlan{
		Action:             domain.ActionBuy,
		StepValue:          stepValue.Round(2),
		CurrentFillPercent: currentFill.Round(2),
		AfterFillPercent:   afterFill.Round(2),
		CanExecute:         true,
		Reason:             reason,
	}
}

func planSell(decision domain.Decision, baseStep, maxPosition, currentValue, currentFill decimal.Decimal) domain.OrderPlan {
	if !currentFill.IsPositive() {
		return domain.OrderPlan{
			Action:     domain.ActionSell,
			CanExecute: false,
			Reason:     "no position to sell",
		}
	}

	// the sell step is a percentage of the current holding, not of the
	// maximum position
	step := effectiveStep(baseStep, decision.Confidence)
	stepValue := currentValue.Mul(step).Div(hundred)
	afterValue := currentValue.Sub(stepValue)

	afterFill := decimal.Zero
	if maxPosition.IsPositive() {
		afterFill = afterValue.Div(maxPosition).Mul(hundred)
	}

	var reason string
	if afterFill.IsNegative() {
		stepValue = currentValue
		afterFill = decimal.Zero
		reason = fmt.Sprintf("final %s%% exit, closing entire position ($%s)", step.Round(2), stepValue.Round(2))
	} else {
		reason = fmt.Sprintf("selling %s%% step ($%s) from %s%% position",
			step.Round(2), stepValue.Round(2), currentFill.Round(1))
	}

	return domain.OrderPlan{
		Action:             domain.ActionSell,
		StepValue:          stepValue.Round(2),
		CurrentFillPercent: currentFill.Round(2),
		AfterFillPercent:   afterFill.Round(2),
		CanExecute:         true,
		Reason:             reason,
	}
}

// effectiveStep scales the base step by confidence: 0.5x at zero
// confidence, 1.5x at full confidence, never above 100%.
func effectiveStep(baseStep decimal.Decimal, confidence float64) decimal.Decimal {
	scaled := baseStep.Mul(half.Add(decimal.NewFromFloat(confidence)))
	if scaled.GreaterThan(hundred) {
		return hundred
	}
	return scaled
}
