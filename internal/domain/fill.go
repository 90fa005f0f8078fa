package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillStatus marks how a fill was executed.
type FillStatus string

const (
	// FillStatusPaper is a simulated execution recorded in paper mode.
	FillStatusPaper FillStatus = "completed_paper"
	// FillStatusLive is a real exchange execution.
	FillStatusLive FillStatus = "completed_live"
)

// Fill is one executed trade. Fills are append-only: once written to
// the ledger they are never mutated.
type Fill struct {
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	Pair      Pair            `json:"pair"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Status    FillStatus      `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// Completed reports whether the fill counts toward the position.
func (f *Fill) Completed() bool {
	return f.Status == FillStatusPaper || f.Status == FillStatusLive
}
