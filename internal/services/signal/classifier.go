package signal

import (
	"github.com/pkg/errors"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/pkg/indicators"
)

const (
	highVolatilityThreshold = 0.04
	stopLevelMargin         = 0.01
)

// classification is the regime sub-model output.
type classification struct {
	regime     domain.Regime
	action     domain.Action
	confidence float64
	rsi        float64
	volatility float64
}

// runClassifier derives a discrete market regime from volatility, a
// simplified directional stop level, and RSI, then proposes an action
// from a per-regime rule table tuned for drifting sideways markets.
func runClassifier(candles []domain.Candle) (classification, error) {
	if len(candles) < 50 {
		return classification{}, errors.Errorf("need at least 50 candles for classification, got %d", len(candles))
	}

	closes := domain.Closes(candles)

	rsiSeries, err := indicators.CalculateRSI(closes, 14)
	if err != nil {
		return classification{}, err
	}
	rsi, _ := rsiSeries[len(rsiSeries)-1].Float64()

	atrSeries, err := indicators.CalculateATR(toPriceData(candles), 14)
	if err != nil {
		return classification{}, err
	}
	atr, _ := atrSeries[len(atrSeries)-1].Float64()

	current, _ := closes[len(closes)-1].Float64()
	if current == 0 {
		return classification{}, errors.New("zero close price")
	}

	volatility := atr / current
	stop := directionalStop(candles)

	regime := detectRegime(current, stop, volatility)
	action, confidence := regimeSignal(regime, rsi, volatility)

	return classification{
		regime:     regime,
		action:     action,
		confidence: confidence,
		rsi:        rsi,
		volatility: volatility,
	}, nil
}

// directionalStop approximates a trailing stop level: below recent lows
// while drifting up, above recent highs while drifting down.
func directionalStop(candles []domain.Candle) float64 {
	last := len(candles) - 1
	current, _ := candles[last].Close.Float64()
	if len(candles) < 5 {
		return current
	}

	fiveAgo, _ := candles[last-4].Close.Float64()
	recent := candles[len(candles)-5:]

	if current-fiveAgo > 0 {
		low, _ := recent[0].Low.Float64()
		for _, c := range recent[1:] {
			v, _ := c.Low.Float64()
			if v < low {
				low = v
			}
		}
		return low * 0.98
	}

	high, _ := recent[0].High.Float64()
	for _, c := range recent[1:] {
		v, _ := c.High.Float64()
		if v > high {
			high = v
		}
	}
	return high * 1.02
}

func detectRegime(price, stop, volatility float64) domain.Regime {
	if volatility > highVolatilityThreshold {
		return domain.RegimeHighVolatility
	}
	switch {
	case price > stop*(1+stopLevelMargin):
		return domain.RegimeTrendUp
	case price < stop*(1-stopLevelMargin):
		return domain.RegimeTrendDown
	default:
		return domain.RegimeRange
	}
}

// regimeSignal is the per-regime rule table. Long-only: buys target
// oversold mean reversion, sells bank strength.
func regimeSignal(regime domain.Regime, rsi, volatility float64) (domain.Action, float64) {
	switch regime {
	case domain.RegimeTrendDown:
		switch {
		case rsi < 30 && volatility < 0.015:
			return domain.ActionBuy, 0.75
		case rsi > 50:
			return domain.ActionSell, 0.80
		default:
			return domain.ActionHold, 0.60
		}
	case domain.RegimeRange:
		switch {
		case rsi > 65 && volatility < 0.02:
			return domain.ActionSell, 0.75
		case rsi < 35 && volatility < 0.02:
			return domain.ActionBuy, 0.70
		default:
			return domain.ActionHold, 0.55
		}
	case domain.RegimeHighVolatility:
		switch {
		case rsi > 70:
			return domain.ActionSell, 0.80
		case rsi < 30:
			return domain.ActionHold, 0.50
		default:
			return domain.ActionHold, 0.60
		}
	default: // TREND_UP
		switch {
		case rsi < 40:
			return domain.ActionBuy, 0.70
		case rsi > 70:
			return domain.ActionSell, 0.75
		default:
			return domain.ActionHold, 0.55
		}
	}
}
