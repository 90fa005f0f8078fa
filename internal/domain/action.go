package domain

// Action represents the directional decision of a trading cycle.
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

const (
	actionStringBuy  = "BUY"
	actionStringSell = "SELL"
	actionStringHold = "HOLD"
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return actionStringBuy
	case ActionSell:
		return actionStringSell
	case ActionHold:
		return actionStringHold
	default:
		return "unknown"
	}
}

// ActionFromString parses the string representation of an action.
// Unknown values map to ActionHold.
func ActionFromString(s string) Action {
	switch s {
	case actionStringBuy:
		return ActionBuy
	case actionStringSell:
		return ActionSell
	default:
		return ActionHold
	}
}

// Side is the executed direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)
