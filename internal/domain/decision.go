package domain

import "github.com/shopspring/decimal"

// Vote is a single indicator's proposal with its fixed confidence weight.
type Vote struct {
	Name   string
	Action Action
	Weight float64
}

// Decision is the per-cycle output of the signal ensemble.
type Decision struct {
	Action      Action            `json:"action"`
	Confidence  float64           `json:"confidence"`
	Reason      string            `json:"reason"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

// HoldDecision builds a neutral decision with the given reason.
func HoldDecision(reason string) Decision {
	return Decision{Action: ActionHold, Confidence: 0, Reason: reason}
}

// Regime is a coarse classification of current market conditions.
type Regime string

const (
	RegimeTrendUp        Regime = "TREND_UP"
	RegimeTrendDown      Regime = "TREND_DOWN"
	RegimeRange          Regime = "RANGE"
	RegimeHighVolatility Regime = "HIGH_VOLATILITY"
)

// OrderPlan is the bounded order proposal produced by the sizer.
type OrderPlan struct {
	Action             Action          `json:"action"`
	StepValue          decimal.Decimal `json:"step_value"`
	CurrentFillPercent decimal.Decimal `json:"current_fill_percent"`
	AfterFillPercent   decimal.Decimal `json:"after_fill_percent"`
	CanExecute         bool            `json:"can_execute"`
	Reason             string          `json:"reason"`
}
