package trader

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/wardenbot/warden/internal/domain"
)

// binanceInsufficientBalanceCode is the API error code Binance returns
// when the account cannot cover the order.
const binanceInsufficientBalanceCode = -2010

// BinanceTrader places spot market orders on Binance.
type BinanceTrader struct {
	client *binance.Client
	pair   domain.Pair
}

// NewBinanceTrader creates a BinanceTrader for one pair.
func NewBinanceTrader(client *binance.Client, pair domain.Pair) *BinanceTrader {
	return &BinanceTrader{client: client, pair: pair}
}

// Buy places a market buy order.
func (t *BinanceTrader) Buy(ctx context.Context, quantity decimal.Decimal) error {
	return t.place(ctx, binance.SideTypeBuy, quantity)
}

// Sell places a market sell order.
func (t *BinanceTrader) Sell(ctx context.Context, quantity decimal.Decimal) error {
	return t.place(ctx, binance.SideTypeSell, quantity)
}

func (t *BinanceTrader) place(ctx context.Context, side binance.SideType, quantity decimal.Decimal) error {
	quantity = quantity.RoundFloor(4)
	if !quantity.IsPositive() {
		return errors.New("order quantity rounds to zero")
	}

	clientOrderID := fmt.Sprintf("warden-%s", uuid.NewString())

	_, err := t.client.NewCreateOrderService().
		Symbol(t.pair.Symbol()).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == binanceInsufficientBalanceCode {
			return errors.Wrapf(ErrInsufficientBalance, "binance rejected %s %s %s", side, quantity, t.pair.Symbol())
		}
		return errors.Wrapf(err, "failed to place %s order on binance", side)
	}
	return nil
}
