package trader

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
)

// BybitTrader places spot market orders on Bybit.
type BybitTrader struct {
	client *bybit.Client
	pair   domain.Pair
}

// NewBybitTrader creates a BybitTrader for one pair.
func NewBybitTrader(client *bybit.Client, pair domain.Pair) *BybitTrader {
	return &BybitTrader{client: client, pair: pair}
}

// Buy places a market buy order.
func (t *BybitTrader) Buy(ctx context.Context, quantity decimal.Decimal) error {
	return t.place(ctx, bybit.SideBuy, quantity)
}

// Sell places a market sell order.
func (t *BybitTrader) Sell(ctx context.Context, quantity decimal.Decimal) error {
	return t.place(ctx, bybit.SideSell, quantity)
}

func (t *BybitTrader) place(_ context.Context, side bybit.Side, quantity decimal.Decimal) error {
	quantity = quantity.RoundFloor(4)
	if !quantity.IsPositive() {
		return errors.New("order quantity rounds to zero")
	}

	orderLinkID := "warden-" + uuid.NewString()

	_, err := t.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    "spot",
		Symbol:      bybit.SymbolV5(t.pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         quantity.String(),
		OrderLinkID: &orderLinkID,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "insufficient") {
			return errors.Wrapf(ErrInsufficientBalance, "bybit rejected %s %s %s", side, quantity, t.pair.Symbol())
		}
		return errors.Wrapf(err, "failed to place %s order on bybit", side)
	}
	return nil
}
