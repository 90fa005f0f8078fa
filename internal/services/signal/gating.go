package signal

import (
	"fmt"

	"github.com/wardenbot/warden/internal/domain"
	"go.uber.org/zap"
)

const (
	gatePassthroughConfidence = 0.75
	gateVolatilityThreshold   = 0.025
	gateForecastEdge          = 0.005
	gateMomentumFloor         = -0.005
)

// evaluateGated runs the two-model ensemble: a price forecaster and a
// regime classifier, arbitrated by a gating decision tree that picks
// which sub-model to trust for the current market context. A sub-model
// failure falls back to the indicator vote.
func (e *Ensemble) evaluateGated(candles []domain.Candle, holding bool) domain.Decision {
	closes := domain.Closes(candles)
	current, _ := domain.LastClose(candles).Float64()

	fc, fcErr := runForecaster(closes)
	cl, clErr := runClassifier(candles)

	if fcErr != nil || clErr != nil {
		diagnostics := make(map[string]string)
		if fcErr != nil {
			diagnostics["forecaster"] = fcErr.Error()
		}
		if clErr != nil {
			diagnostics["classifier"] = clErr.Error()
		}
		e.logger.Warn("gated mode sub-model failed, falling back to indicator vote",
			zap.Error(fcErr), zap.Error(clErr))

		fallback := e.evaluateVotes(candles, &domain.StrategyConfig{}, holding)
		if fallback.Diagnostics == nil {
			fallback.Diagnostics = diagnostics
		} else {
			for k, v := range diagnostics {
				fallback.Diagnostics[k] = v
			}
		}
		return fallback
	}

	decision := gate(fc, cl, current, holding)
	decision.Diagnostics = map[string]string{
		"regime":     string(cl.regime),
		"rsi":        fmt.Sprintf("%.1f", cl.rsi),
		"volatility": fmt.Sprintf("%.4f", cl.volatility),
		"momentum":   fmt.Sprintf("%.4f", fc.momentum),
		"forecast":   fmt.Sprintf("%.2f", fc.predicted),
	}
	return longOnly(decision, holding)
}

// gate arbitrates between the forecaster and the classifier.
func gate(fc forecast, cl classification, price float64, holding bool) domain.Decision {
	// a confident classifier signal passes straight through
	if cl.confidence >= gatePassthroughConfidence && cl.action != domain.ActionHold {
		return decision(cl.action, cl.confidence,
			fmt.Sprintf("confident classifier %s in %s, RSI %.0f", cl.action, cl.regime, cl.rsi))
	}

	// elevated volatility: trust the regime classifier with a discount
	if cl.volatility > gateVolatilityThreshold {
		return decision(cl.action, cl.confidence*0.95,
			fmt.Sprintf("volatility %.1f%%: following classifier in %s", cl.volatility*100, cl.regime))
	}

	// quiet range: trade the forecast edge with RSI guards
	if cl.regime == domain.RegimeRange && cl.volatility < gateVolatilityThreshold {
		edge := (fc.predicted - price) / price
		switch {
		case edge > gateForecastEdge && cl.rsi < 65:
			action := domain.ActionBuy
			if holding {
				action = domain.ActionHold
			}
			return decision(action, capConfidence(cl.confidence+absFloat(fc.momentum)*0.5, 0.85),
				fmt.Sprintf("range market: forecast +%.2f%% rise, RSI %.0f", edge*100, cl.rsi))
		case edge < -gateForecastEdge && cl.rsi > 40:
			action := domain.ActionSell
			if !holding {
				action = domain.ActionHold
			}
			return decision(action, capConfidence(cl.confidence+absFloat(fc.momentum)*0.5, 0.85),
				fmt.Sprintf("range market: forecast %.2f%% drop, RSI %.0f", edge*100, cl.rsi))
		default:
			return decision(domain.ActionHold, 0.60,
				fmt.Sprintf("range market: forecast edge unclear (%+.2f%%)", edge*100))
		}
	}

	// confirmed downtrend: weight toward the classifier
	if cl.regime == domain.RegimeTrendDown && fc.momentum < gateMomentumFloor {
		switch {
		case cl.action == domain.ActionSell && holding:
			confidence := cl.confidence
			reason := "downtrend: classifier signals exit, forecaster neutral"
			if fc.predicted < price*0.99 {
				confidence = capConfidence(confidence+0.10, 0.90)
				reason = fmt.Sprintf("downtrend: both models agree on exit (forecast %.2f)", fc.predicted)
			}
			return decision(domain.ActionSell, confidence, reason)
		case cl.action == domain.ActionBuy && cl.rsi < 30:
			return decision(domain.ActionBuy, cl.confidence,
				fmt.Sprintf("downtrend: oversold bounce opportunity, RSI %.0f", cl.rsi))
		default:
			return decision(domain.ActionHold, 0.60,
				fmt.Sprintf("downtrend: waiting for better entry, RSI %.0f", cl.rsi))
		}
	}

	// weak trend: follow a confident classifier with a discount
	if cl.confidence > gatePassthroughConfidence {
		return decision(cl.action, cl.confidence*0.90,
			fmt.Sprintf("classifier confidence %.0f%% in %s", cl.confidence*100, cl.regime))
	}

	return decision(domain.ActionHold, 0.50,
		fmt.Sprintf("no clear edge: %s, RSI %.0f, momentum %+.3f", cl.regime, cl.rsi, fc.momentum))
}

// longOnly downgrades SELL to HOLD when no position is modeled.
func longOnly(d domain.Decision, holding bool) domain.Decision {
	if d.Action == domain.ActionSell && !holding {
		d.Action = domain.ActionHold
		d.Reason = "no position to sell: " + d.Reason
	}
	return d
}

func decision(action domain.Action, confidence float64, reason string) domain.Decision {
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return domain.Decision{Action: action, Confidence: confidence, Reason: reason}
}

func capConfidence(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	return v
}
