package signal

import (
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/pkg/indicators"
)

// Fixed confidence weights per indicator. A directional extreme carries
// more weight than a neutral reading.
const (
	weightRSIExtreme   = 0.8
	weightRSINeutral   = 0.5
	weightSMACross     = 0.7
	weightSMAConfirmed = 0.8
	weightSMANeutral   = 0.6
	weightMACD         = 0.6
	weightMACDNeutral  = 0.5
	weightBollinger    = 0.75

	adxTrendThreshold = 25.0
)

// rsiVote proposes BUY below 30 and SELL above 70.
func rsiVote(closes []decimal.Decimal) (domain.Vote, error) {
	rsi, err := indicators.CalculateRSI(closes, 14)
	if err != nil {
		return domain.Vote{}, err
	}
	value, _ := rsi[len(rsi)-1].Float64()

	vote := domain.Vote{Name: "rsi", Action: domain.ActionHold, Weight: weightRSINeutral}
	switch {
	case value < 30:
		vote.Action = domain.ActionBuy
		vote.Weight = weightRSIExtreme
	case value > 70:
		vote.Action = domain.ActionSell
		vote.Weight = weightRSIExtreme
	}
	return vote, nil
}

// smaVote proposes the direction of a 20/50 crossover confirmed by price.
// When ADX reads above 25 the trend is considered confirmed and the
// directional vote is boosted.
func smaVote(candles []domain.Candle, closes []decimal.Decimal) (domain.Vote, error) {
	sma20, err := indicators.CalculateSMA(closes, 20)
	if err != nil {
		return domain.Vote{}, err
	}
	sma50, err := indicators.CalculateSMA(closes, 50)
	if err != nil {
		return domain.Vote{}, err
	}

	current := closes[len(closes)-1]
	fast := sma20[len(sma20)-1]
	slow := sma50[len(sma50)-1]

	directionalWeight := weightSMACross
	if adx, adxErr := indicators.CalculateADX(toPriceData(candles), 14); adxErr == nil {
		if value, _ := adx.Float64(); value > adxTrendThreshold {
			directionalWeight = weightSMAConfirmed
		}
	}

	vote := domain.Vote{Name: "sma_cross", Action: domain.ActionHold, Weight: weightSMANeutral}
	switch {
	case fast.GreaterThan(slow) && current.GreaterThan(fast):
		vote.Action = domain.ActionBuy
		vote.Weight = directionalWeight
	case fast.LessThan(slow) && current.LessThan(fast):
		vote.Action = domain.ActionSell
		vote.Weight = directionalWeight
	}
	return vote, nil
}

// macdVote proposes the direction of the MACD line against its signal line.
func macdVote(closes []decimal.Decimal) (domain.Vote, error) {
	line, signalLine, err := indicators.CalculateMACD(closes)
	if err != nil {
		return domain.Vote{}, err
	}

	last := line[len(line)-1]
	lastSignal := signalLine[len(signalLine)-1]

	vote := domain.Vote{Name: "macd", Action: domain.ActionHold, Weight: weightMACDNeutral}
	switch {
	case last.GreaterThan(lastSignal):
		vote.Action = domain.ActionBuy
		vote.Weight = weightMACD
	case last.LessThan(lastSignal):
		vote.Action = domain.ActionSell
		vote.Weight = weightMACD
	}
	return vote, nil
}

// bollingerVote proposes mean reversion on a band breach. Inside the
// bands it abstains rather than voting HOLD.
func bollingerVote(closes []decimal.Decimal) (domain.Vote, bool, error) {
	bands, err := indicators.CalculateBollinger(closes)
	if err != nil {
		return domain.Vote{}, false, err
	}

	current := closes[len(closes)-1]
	upper := bands.Upper[len(bands.Upper)-1]
	lower := bands.Lower[len(bands.Lower)-1]

	switch {
	case current.LessThanOrEqual(lower):
		return domain.Vote{Name: "bollinger", Action: domain.ActionBuy, Weight: weightBollinger}, true, nil
	case current.GreaterThanOrEqual(upper):
		return domain.Vote{Name: "bollinger", Action: domain.ActionSell, Weight: weightBollinger}, true, nil
	default:
		return domain.Vote{}, false, nil
	}
}

// reduce aggregates votes into an action by plurality. A tie resolves to
// HOLD. Confidence is the mean weight of the votes that match the
// winning action, so a single strong signal is not diluted by neutral
// voters.
func reduce(votes []domain.Vote) (domain.Action, float64) {
	if len(votes) == 0 {
		return domain.ActionHold, 0
	}

	counts := make(map[domain.Action]int, 3)
	for _, v := range votes {
		counts[v.Action]++
	}

	action := domain.ActionHold
	switch {
	case counts[domain.ActionBuy] > counts[domain.ActionSell] && counts[domain.ActionBuy] > counts[domain.ActionHold]:
		action = domain.ActionBuy
	case counts[domain.ActionSell] > counts[domain.ActionBuy] && counts[domain.ActionSell] > counts[domain.ActionHold]:
		action = domain.ActionSell
	}

	sum := 0.0
	matched := 0
	for _, v := range votes {
		if v.Action == action {
			sum += v.Weight
			matched++
		}
	}
	if matched == 0 {
		return action, 0.5
	}

	confidence := sum / float64(matched)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return action, confidence
}

func toPriceData(candles []domain.Candle) []indicators.PriceData {
	data := make([]indicators.PriceData, len(candles))
	for i, c := range candles {
		data[i] = indicators.PriceData{Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	}
	return data
}
