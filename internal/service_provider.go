package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/clients"
	"github.com/wardenbot/warden/internal/domain"
	"github.com/wardenbot/warden/internal/services/market/collector"
	"github.com/wardenbot/warden/internal/services/pricer"
	"github.com/wardenbot/warden/internal/services/trader"
)

// Platform names accepted in config.
const (
	PlatformBinance  = "binance"
	PlatformBybit    = "bybit"
	PlatformSimulate = "simulate"
)

// ServiceProvider is the single point of truth for platform-specific
// market data and order execution services.
type ServiceProvider struct {
	platform string
	binance  *binance.Client
	bybit    *bybit.Client
	paper    trader.Trader
	logger   *zap.Logger
}

// NewServiceProvider builds the provider for the configured platform.
// The simulate platform uses the Binance public API for market data and
// never places real orders.
func NewServiceProvider(platform, apiKey, apiSecret string, logger *zap.Logger) (*ServiceProvider, error) {
	p := &ServiceProvider{
		platform: platform,
		paper:    trader.NewPaperTrader(logger),
		logger:   logger,
	}

	switch platform {
	case PlatformBinance:
		p.binance = clients.NewBinanceClient(apiKey, apiSecret)
	case PlatformBybit:
		p.bybit = clients.NewBybitClient(apiKey, apiSecret)
	case PlatformSimulate:
		p.binance = clients.NewBinanceClient("", "")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}

	return p, nil
}

// Pricer returns the platform price source.
func (p *ServiceProvider) Pricer() pricer.Pricer {
	switch {
	case p.platform == PlatformSimulate:
		return pricer.NewSimulatePricer()
	case p.bybit != nil:
		return pricer.NewBybitPricer(p.bybit)
	default:
		return pricer.NewBinancePricer(p.binance)
	}
}

// KlineProvider returns the platform candle source.
func (p *ServiceProvider) KlineProvider() collector.KlineProvider {
	if p.bybit != nil {
		return collector.NewBybitKlineProvider(p.bybit)
	}
	return collector.NewBinanceKlineProvider(p.binance)
}

// TraderFor resolves the order executor for an account config. Paper
// accounts and the simulate platform always get the paper trader.
func (p *ServiceProvider) TraderFor(cfg *domain.StrategyConfig) (trader.Trader, error) {
	if cfg.PaperTrading || p.platform == PlatformSimulate {
		return p.paper, nil
	}

	switch p.platform {
	case PlatformBinance:
		return trader.NewBinanceTrader(p.binance, cfg.Pair), nil
	case PlatformBybit:
		return trader.NewBybitTrader(p.bybit, cfg.Pair), nil
	default:
		return nil, fmt.Errorf("no trader for platform %s", p.platform)
	}
}
