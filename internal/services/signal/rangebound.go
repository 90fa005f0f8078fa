package signal

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/pkg/indicators"
)

const (
	// rangeOverrideThreshold is the confidence a tactical signal must
	// exceed to override the indicator vote.
	rangeOverrideThreshold = 0.8
	// rangeSignalConfidence is the fixed confidence of a fired tactical
	// signal.
	rangeSignalConfidence = 0.82

	rangeADXCeiling = 25.0
	rangeRSIFloor   = 35.0
	rangeRSICeiling = 65.0
)

// rangeBoundSignal implements the mean-reversion tactical sub-mode. It
// fires only in a flat market (ADX below 25): BUY when price pierces the
// lower Bollinger band with RSI oversold, SELL when price pierces the
// upper band with RSI overbought. SELL requires an open position.
func rangeBoundSignal(candles []domain.Candle, closes []decimal.Decimal, holding bool, diagnostics map[string]string) (domain.Decision, bool) {
	adx, err := indicators.CalculateADX(toPriceData(candles), 14)
	if err != nil {
		diagnostics["range_adx"] = err.Error()
		return domain.Decision{}, false
	}
	adxValue, _ := adx.Float64()
	if adxValue >= rangeADXCeiling {
		return domain.Decision{}, false
	}

	bands, err := indicators.CalculateBollinger(closes)
	if err != nil {
		diagnostics["range_bollinger"] = err.Error()
		return domain.Decision{}, false
	}
	rsi, err := indicators.CalculateRSI(closes, 14)
	if err != nil {
		diagnostics["range_rsi"] = err.Error()
		return domain.Decision{}, false
	}

	current := closes[len(closes)-1]
	upper := bands.Upper[len(bands.Upper)-1]
	lower := bands.Lower[len(bands.Lower)-1]
	rsiValue, _ := rsi[len(rsi)-1].Float64()

	switch {
	case current.LessThan(lower) && rsiValue < rangeRSIFloor:
		return domain.Decision{
			Action:     domain.ActionBuy,
			Confidence: rangeSignalConfidence,
			Reason:     fmt.Sprintf("range-bound entry: price %s below lower band %s, RSI %.0f", current, lower.Round(2), rsiValue),
		}, true
	case current.GreaterThan(upper) && rsiValue > rangeRSICeiling && holding:
		return domain.Decision{
			Action:     domain.ActionSell,
			Confidence: rangeSignalConfidence,
			Reason:     fmt.Sprintf("range-bound exit: price %s above upper band %s, RSI %.0f", current, upper.Round(2), rsiValue),
		}, true
	}
	return domain.Decision{}, false
}
