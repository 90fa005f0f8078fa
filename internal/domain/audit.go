package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditOutcome classifies what a cycle did.
type AuditOutcome string

const (
	AuditOutcomeExecuted AuditOutcome = "executed"
	AuditOutcomeSkipped  AuditOutcome = "skipped"
	AuditOutcomeHold     AuditOutcome = "hold"
	AuditOutcomeError    AuditOutcome = "error"
	AuditOutcomeHalted   AuditOutcome = "halted"
)

// AuditRecord is the structured, queryable trace of one cycle.
type AuditRecord struct {
	Account    string          `json:"account"`
	Pair       string          `json:"pair"`
	Timestamp  time.Time       `json:"timestamp"`
	Outcome    AuditOutcome    `json:"outcome"`
	Action     string          `json:"action"`
	Confidence float64         `json:"confidence"`
	Price      decimal.Decimal `json:"price"`
	StepValue  decimal.Decimal `json:"step_value"`
	Reason     string          `json:"reason"`
	Paper      bool            `json:"paper"`
}

// EventKind classifies broadcast events for subscribers.
type EventKind string

const (
	EventKindDecision   EventKind = "decision"
	EventKindTrade      EventKind = "trade"
	EventKindKillSwitch EventKind = "kill_switch"
	EventKindStatus     EventKind = "status"
)

// Event is a best-effort real-time notification pushed to listeners.
// Kill-switch events carry critical priority so UIs can surface them.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Account   string      `json:"account"`
	Timestamp time.Time   `json:"timestamp"`
	Priority  string      `json:"priority,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}
