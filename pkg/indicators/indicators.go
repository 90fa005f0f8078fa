// Package indicators provides technical analysis indicators (SMA, EMA, RSI,
// MACD, Bollinger Bands, ATR, ADX).
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
)

// PriceData represents OHLC (open, high, low, close) price data.
type PriceData struct {
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// BollingerBands holds aligned band series.
type BollingerBands struct {
	Upper  []decimal.Decimal
	Middle []decimal.Decimal
	Lower  []decimal.Decimal
}

// CalculateSMA calculates the Simple Moving Average for the given period.
func CalculateSMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	sma := trend.NewSmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := sma.Compute(inputChan)
	smaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(smaFloat), nil
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := ema.Compute(inputChan)
	emaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(emaFloat), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := rsi.Compute(inputChan)
	rsiFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(rsiFloat), nil
}

// CalculateMACD calculates the MACD line and its signal line.
func CalculateMACD(closes []decimal.Decimal) ([]decimal.Decimal, []decimal.Decimal, error) {
	if len(closes) < 26 {
		return nil, nil, fmt.Errorf("not enough data points for MACD: need at least 26, got %d", len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	macd := trend.NewMacd[float64]()
	inputChan := helper.SliceToChan(closesFloat)
	macdChan, signalChan := macd.Compute(inputChan)

	// both channels must be drained concurrently to prevent blocking
	signalDone := make(chan []float64, 1)
	go func() {
		signalDone <- helper.ChanToSlice(signalChan)
	}()
	macdFloat := helper.ChanToSlice(macdChan)
	signalFloat := <-signalDone

	return float64ToDecimals(macdFloat), float64ToDecimals(signalFloat), nil
}

// CalculateBollinger calculates 20-period Bollinger Bands with 2 standard deviations.
func CalculateBollinger(closes []decimal.Decimal) (*BollingerBands, error) {
	if len(closes) < 20 {
		return nil, fmt.Errorf("not enough data points for Bollinger Bands: need 20, got %d", len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	bb := volatility.NewBollingerBands[float64]()
	inputChan := helper.SliceToChan(closesFloat)
	upperChan, middleChan, lowerChan := bb.Compute(inputChan)

	middleDone := make(chan []float64, 1)
	lowerDone := make(chan []float64, 1)
	go func() { middleDone <- helper.ChanToSlice(middleChan) }()
	go func() { lowerDone <- helper.ChanToSlice(lowerChan) }()
	upper := helper.ChanToSlice(upperChan)
	middle := <-middleDone
	lower := <-lowerDone

	return &BollingerBands{
		Upper:  float64ToDecimals(upper),
		Middle: float64ToDecimals(middle),
		Lower:  float64ToDecimals(lower),
	}, nil
}

// CalculateATR calculates the Average True Range for the given period.
func CalculateATR(priceData []PriceData, period int) ([]decimal.Decimal, error) {
	if len(priceData) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(priceData))
	}

	highs := make([]float64, len(priceData))
	lows := make([]float64, len(priceData))
	closes := make([]float64, len(priceData))

	for i, pd := range priceData {
		highs[i], _ = pd.High.Float64()
		lows[i], _ = pd.Low.Float64()
		closes[i], _ = pd.Close.Float64()
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	highChan := helper.SliceToChan(highs)
	lowChan := helper.SliceToChan(lows)
	closeChan := helper.SliceToChan(closes)
	outputChan := atr.Compute(highChan, lowChan, closeChan)
	atrFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(atrFloat), nil
}

// CalculateADX calculates the Average Directional Index with Wilder smoothing.
// cinar/indicator does not ship ADX, so the classic Wilder recurrence is
// computed directly.
func CalculateADX(priceData []PriceData, period int) (decimal.Decimal, error) {
	if len(priceData) < 2*period+1 {
		return decimal.Zero, fmt.Errorf("not enough data points for ADX: need %d, got %d", 2*period+1, len(priceData))
	}

	highs := make([]float64, len(priceData))
	lows := make([]float64, len(priceData))
	closes := make([]float64, len(priceData))
	for i, pd := range priceData {
		highs[i], _ = pd.High.Float64()
		lows[i], _ = pd.Low.Float64()
		closes[i], _ = pd.Close.Float64()
	}

	var trSum, plusDMSum, minusDMSum float64
	for i := 1; i <= period; i++ {
		tr, plusDM, minusDM := directionalMovement(highs, lows, closes, i)
		trSum += tr
		plusDMSum += plusDM
		minusDMSum += minusDM
	}

	smoothTR, smoothPlus, smoothMinus := trSum, plusDMSum, minusDMSum
	dxSum := 0.0
	dxCount := 0
	adx := 0.0

	for i := period + 1; i < len(closes); i++ {
		tr, plusDM, minusDM := directionalMovement(highs, lows, closes, i)

		// Wilder smoothing: subtract the average, add the new value
		smoothTR = smoothTR - smoothTR/float64(period) + tr
		smoothPlus = smoothPlus - smoothPlus/float64(period) + plusDM
		smoothMinus = smoothMinus - smoothMinus/float64(period) + minusDM

		if smoothTR == 0 {
			continue
		}
		plusDI := 100 * smoothPlus / smoothTR
		minusDI := 100 * smoothMinus / smoothTR

		diSum := plusDI + minusDI
		if diSum == 0 {
			continue
		}
		dx := 100 * abs(plusDI-minusDI) / diSum

		dxCount++
		switch {
		case dxCount < period:
			dxSum += dx
		case dxCount == period:
			dxSum += dx
			adx = dxSum / float64(period)
		default:
			adx = (adx*float64(period-1) + dx) / float64(period)
		}
	}

	if dxCount < period {
		return decimal.Zero, fmt.Errorf("not enough directional movement data for ADX")
	}

	return decimal.NewFromFloat(adx), nil
}

func directionalMovement(highs, lows, closes []float64, i int) (tr, plusDM, minusDM float64) {
	highLow := highs[i] - lows[i]
	highClose := abs(highs[i] - closes[i-1])
	lowClose := abs(lows[i] - closes[i-1])
	tr = max3(highLow, highClose, lowClose)

	upMove := highs[i] - highs[i-1]
	downMove := lows[i-1] - lows[i]
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	return tr, plusDM, minusDM
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
