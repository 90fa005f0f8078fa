package signal

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/pkg/indicators"
)

const (
	forecastWindow  = 20
	forecastDamping = 0.7
)

// forecast is the short-horizon price projection sub-model output.
type forecast struct {
	predicted     float64
	momentum      float64
	trendStrength float64
}

// runForecaster projects the next-period price: a linear regression over
// the recent closes extrapolated one step, then damped toward EMA(26)
// for mean reversion. Momentum is the normalized EMA(12)/EMA(26) spread.
func runForecaster(closes []decimal.Decimal) (forecast, error) {
	if len(closes) < 50 {
		return forecast{}, errors.Errorf("need at least 50 closes for forecasting, got %d", len(closes))
	}

	ema12, err := lastEMA(closes, 12)
	if err != nil {
		return forecast{}, err
	}
	ema26, err := lastEMA(closes, 26)
	if err != nil {
		return forecast{}, err
	}
	ema50, err := lastEMA(closes, 50)
	if err != nil {
		return forecast{}, err
	}
	if ema26 == 0 || ema50 == 0 {
		return forecast{}, errors.New("degenerate EMA values")
	}

	current, _ := closes[len(closes)-1].Float64()

	momentum := (ema12 - ema26) / ema26
	trendStrength := 10 * absFloat(current-ema50) / ema50
	if trendStrength > 1 {
		trendStrength = 1
	}

	recent := closes[len(closes)-forecastWindow:]
	slope, intercept := linearRegression(recent)
	raw := slope*float64(forecastWindow+1) + intercept

	predicted := raw*(1-forecastDamping) + ema26*forecastDamping

	return forecast{
		predicted:     predicted,
		momentum:      momentum,
		trendStrength: trendStrength,
	}, nil
}

// linearRegression fits y = slope*x + intercept over x = 0..n-1 by
// least squares.
func linearRegression(closes []decimal.Decimal) (slope, intercept float64) {
	n := float64(len(closes))
	var sumX, sumY, sumXY, sumXX float64
	for i, c := range closes {
		x := float64(i)
		y, _ := c.Float64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func lastEMA(closes []decimal.Decimal, period int) (float64, error) {
	series, err := indicators.CalculateEMA(closes, period)
	if err != nil {
		return 0, err
	}
	value, _ := series[len(series)-1].Float64()
	return value, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
