package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wardenbot/warden/config"
	"github.com/wardenbot/warden/internal"
	"github.com/wardenbot/warden/internal/engine"
	"github.com/wardenbot/warden/internal/events"
	"github.com/wardenbot/warden/internal/notify"
	"github.com/wardenbot/warden/internal/services/market/collector"
	"github.com/wardenbot/warden/internal/services/position"
	"github.com/wardenbot/warden/internal/services/risk"
	"github.com/wardenbot/warden/internal/services/signal"
	"github.com/wardenbot/warden/internal/setup"
	"github.com/wardenbot/warden/internal/storage/audit"
	"github.com/wardenbot/warden/internal/storage/configs"
	"github.com/wardenbot/warden/internal/storage/fills"
	"github.com/wardenbot/warden/internal/web"
	"github.com/wardenbot/warden/pkg/retrier"
)

const generatedConfigFile = "config.gen.yaml"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var (
		cfg *config.Config
		err error
	)
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			logger.Fatal("setup wizard failed", zap.Error(err))
		}
		cfg, err = config.Load(generatedConfigFile)
	} else {
		cfg, err = config.Get()
	}
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	provider, err := internal.NewServiceProvider(cfg.Platform, cfg.APIKey, cfg.APISecret, logger)
	if err != nil {
		logger.Fatal("failed to create service provider", zap.Error(err))
	}

	fillStore, err := fills.NewWALStore(filepath.Join(cfg.WALDir, "fills"))
	if err != nil {
		logger.Fatal("failed to open fill ledger", zap.Error(err))
	}
	defer fillStore.Close()

	configStore, err := configs.NewWALStore(filepath.Join(cfg.WALDir, "configs"))
	if err != nil {
		logger.Fatal("failed to open config store", zap.Error(err))
	}
	defer configStore.Close()

	auditStore, err := audit.NewWALStore(filepath.Join(cfg.WALDir, "audit"))
	if err != nil {
		logger.Fatal("failed to open audit store", zap.Error(err))
	}
	defer auditStore.Close()

	// seed strategy configs for accounts that have no record yet;
	// existing records win so durable edits survive restarts
	for _, account := range cfg.Accounts {
		_, found, err := configStore.Load(account.Account)
		if err != nil {
			logger.Fatal("failed to read config store", zap.String("account", account.Account), zap.Error(err))
		}
		if found {
			continue
		}
		if err := configStore.Save(account); err != nil {
			logger.Fatal("failed to seed account config", zap.String("account", account.Account), zap.Error(err))
		}
		logger.Info("seeded account config",
			zap.String("account", account.Account),
			zap.String("pair", account.Pair.String()))
	}

	var sender notify.Sender
	if cfg.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.WebhookURL)
	}

	broadcaster := events.NewBroadcaster(0)
	eng := engine.New(engine.Deps{
		Candles:  collector.NewCollector(provider.KlineProvider(), logger),
		Prices:   provider.Pricer(),
		Traders:  provider,
		Fills:    fillStore,
		Configs:  configStore,
		Audit:    auditStore,
		Signal:   signal.NewEnsemble(logger),
		Tracker:  position.NewTracker(logger),
		Guard:    risk.NewGuard(logger),
		Notifier: notify.NewNotifier(sender, logger),
		Events:   broadcaster,
		Logger:   logger,
	})
	eng.SetCandleWindow(cfg.CandleInterval, cfg.CandleLimit)

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// probe exchange connectivity with backoff before starting loops
	probe := retrier.New(
		retrier.WithInitialInterval(2*time.Second),
		retrier.WithMaxInterval(30*time.Second),
		retrier.WithMaxRetries(5),
		retrier.WithNotify(func(attempt int, err error) {
			logger.Warn("exchange connectivity probe failed",
				zap.Int("attempt", attempt), zap.Error(err))
		}),
	)
	pair := cfg.Accounts[0].Pair
	if err := probe.Do(ctx, func(ctx context.Context) error {
		_, err := provider.Pricer().GetPrice(ctx, pair)
		return err
	}); err != nil {
		logger.Fatal("exchange unreachable", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)

	server := web.NewServer(cfg.ListenAddr, auditStore, broadcaster, eng, logger)
	g.Go(func() error {
		logger.Info("web server listening", zap.String("addr", cfg.ListenAddr))
		return server.Start(ctx)
	})

	for _, account := range cfg.Accounts {
		status, err := eng.Start(ctx, account.Account, true, account.CycleInterval)
		if err != nil {
			logger.Fatal("failed to start control loop",
				zap.String("account", account.Account), zap.Error(err))
		}
		logger.Info("control loop started",
			zap.String("account", account.Account),
			zap.String("pair", account.Pair.String()),
			zap.String("status", status))
	}

	g.Go(func() error {
		<-ctx.Done()
		eng.StopAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
