// Package collector fetches candlestick windows from exchanges.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/wardenbot/warden/internal/domain"
	"go.uber.org/zap"
)

// recommendedWindow is the candle count below which indicator quality
// degrades.
const recommendedWindow = 50

const fetchTimeout = 30 * time.Second

// KlineProvider fetches historical kline data for a trading pair.
// interval uses the standard format ("1m", "5m", "1h", "4h", "1d").
type KlineProvider interface {
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}

// Collector wraps a KlineProvider with a fetch timeout and window
// sanity checks.
type Collector struct {
	provider KlineProvider
	logger   *zap.Logger
}

// NewCollector creates a Collector.
func NewCollector(provider KlineProvider, logger *zap.Logger) *Collector {
	return &Collector{provider: provider, logger: logger}
}

// FetchWindow fetches a candle window for the requested interval. A
// window shorter than recommended is returned with a warning; the
// signal layer degrades gracefully on short input.
func (c *Collector) FetchWindow(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	candles, err := c.provider.GetKlines(ctxWithTimeout, pair, interval, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch candle window for %s", pair.String())
	}

	if len(candles) == 0 {
		return nil, errors.Errorf("no kline data returned for %s", pair.String())
	}

	if len(candles) < recommendedWindow {
		c.logger.Warn("short candle window, indicator quality degraded",
			zap.String("pair", pair.String()),
			zap.Int("candles", len(candles)),
			zap.Int("recommended", recommendedWindow))
	}

	return candles, nil
}
