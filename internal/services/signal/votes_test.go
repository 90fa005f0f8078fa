package signal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/domain"
)

// trendingCandles builds a strictly monotonic close series with a fixed
// per-candle range so directional indicators read cleanly.
func trendingCandles(n int, start, step float64) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		price := start + float64(i)*step
		candles[i] = domain.Candle{
			Open:  decimal.NewFromFloat(price - step/2),
			High:  decimal.NewFromFloat(price + 1),
			Low:   decimal.NewFromFloat(price - 1),
			Close: decimal.NewFromFloat(price),
		}
	}
	return candles
}

// spikeCloses is a flat series whose final close jumps by delta.
func spikeCloses(n int, base, delta float64) []decimal.Decimal {
	closes := make([]decimal.Decimal, n)
	for i := range closes {
		closes[i] = decimal.NewFromFloat(base)
	}
	closes[n-1] = decimal.NewFromFloat(base + delta)
	return closes
}

func TestRSIVoteDirection(t *testing.T) {
	rising := domain.Closes(trendingCandles(60, 100, 1))
	vote, err := rsiVote(rising)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, vote.Action)
	assert.Equal(t, weightRSIExtreme, vote.Weight)

	falling := domain.Closes(trendingCandles(60, 200, -1))
	vote, err = rsiVote(falling)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, vote.Action)
	assert.Equal(t, weightRSIExtreme, vote.Weight)
}

func TestSMAVoteFollowsTrend(t *testing.T) {
	rising := trendingCandles(60, 100, 1)
	vote, err := smaVote(rising, domain.Closes(rising))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, vote.Action)
	// a clean one-way trend maxes out ADX, confirming the crossover
	assert.Equal(t, weightSMAConfirmed, vote.Weight)

	falling := trendingCandles(60, 200, -1)
	vote, err = smaVote(falling, domain.Closes(falling))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, vote.Action)
}

func TestMACDVoteFollowsTrend(t *testing.T) {
	rising := domain.Closes(trendingCandles(60, 100, 1))
	vote, err := macdVote(rising)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, vote.Action)
	assert.Equal(t, weightMACD, vote.Weight)

	falling := domain.Closes(trendingCandles(60, 200, -1))
	vote, err = macdVote(falling)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, vote.Action)
}

func TestBollingerVoteFiresOnBreach(t *testing.T) {
	vote, ok, err := bollingerVote(spikeCloses(60, 100, 30))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ActionSell, vote.Action)
	assert.Equal(t, weightBollinger, vote.Weight)

	vote, ok, err = bollingerVote(spikeCloses(60, 100, -30))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ActionBuy, vote.Action)
}

func TestBollingerVoteAbstainsInsideBands(t *testing.T) {
	// a steady linear drift stays inside the bands
	closes := domain.Closes(trendingCandles(60, 100, 0.5))
	_, ok, err := bollingerVote(closes)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReduce(t *testing.T) {
	buy := func(w float64) domain.Vote { return domain.Vote{Action: domain.ActionBuy, Weight: w} }
	sell := func(w float64) domain.Vote { return domain.Vote{Action: domain.ActionSell, Weight: w} }
	hold := func(w float64) domain.Vote { return domain.Vote{Action: domain.ActionHold, Weight: w} }

	tests := []struct {
		name           string
		votes          []domain.Vote
		wantAction     domain.Action
		wantConfidence float64
	}{
		{
			name:           "no votes holds with zero confidence",
			votes:          nil,
			wantAction:     domain.ActionHold,
			wantConfidence: 0,
		},
		{
			name:           "buy plurality wins",
			votes:          []domain.Vote{buy(0.8), buy(0.6), sell(0.75)},
			wantAction:     domain.ActionBuy,
			wantConfidence: 0.7,
		},
		{
			name:           "sell plurality wins",
			votes:          []domain.Vote{sell(0.8), sell(0.6), hold(0.5)},
			wantAction:     domain.ActionSell,
			wantConfidence: 0.7,
		},
		{
			name:           "buy sell tie resolves to hold",
			votes:          []domain.Vote{buy(0.8), sell(0.8), hold(0.5)},
			wantAction:     domain.ActionHold,
			wantConfidence: 0.5,
		},
		{
			name:           "hold majority keeps neutral weights",
			votes:          []domain.Vote{hold(0.5), hold(0.6), buy(0.8)},
			wantAction:     domain.ActionHold,
			wantConfidence: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, confidence := reduce(tt.votes)
			assert.Equal(t, tt.wantAction, action)
			assert.InDelta(t, tt.wantConfidence, confidence, 1e-9)
		})
	}
}
