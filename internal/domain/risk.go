package domain

import "time"

// RiskState is the kill-switch state machine position for one account.
type RiskState string

const (
	// RiskStateArmed means breaches are being counted.
	RiskStateArmed RiskState = "ARMED"
	// RiskStateCooldown suppresses breach evaluation after a trigger.
	RiskStateCooldown RiskState = "COOLDOWN"
	// RiskStateHalted is terminal until a manual reset.
	RiskStateHalted RiskState = "HALTED"
)

// RiskStatus is the externally readable view of an account's risk state.
type RiskStatus struct {
	State            RiskState  `json:"state"`
	BreachCount      int        `json:"breach_count"`
	BreachThreshold  int        `json:"breach_threshold"`
	LastTrigger      *time.Time `json:"last_trigger,omitempty"`
	CooldownUntil    *time.Time `json:"cooldown_until,omitempty"`
	BaselinePercent  *float64   `json:"baseline_percent,omitempty"`
}

// RiskVerdict is what the guard tells the loop to do this cycle.
type RiskVerdict int

const (
	// RiskVerdictPass leaves the ensemble decision untouched.
	RiskVerdictPass RiskVerdict = iota
	// RiskVerdictForceExit overrides with a full-position SELL.
	RiskVerdictForceExit
	// RiskVerdictTakeProfit overrides with a partial SELL at the exit step.
	RiskVerdictTakeProfit
	// RiskVerdictHalt stops the loop; terminal until manual reset.
	RiskVerdictHalt
)
