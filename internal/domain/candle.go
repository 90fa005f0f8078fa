package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle single OHLCV candlestick.
type Candle struct {
	OpenTime  time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	CloseTime time.Time
}

// Closes extracts the close series from a candle window.
func Closes(candles []Candle) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// LastClose returns the most recent close price, zero for an empty window.
func LastClose(candles []Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	return candles[len(candles)-1].Close
}
