package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wardenbot/warden/internal/domain"
)

// Config is the process-level configuration: exchange credentials, the
// HTTP listen address and the set of accounts to run. Per-account
// strategy parameters live in the durable config store after first
// startup; the values here only seed accounts that have no record yet.
type Config struct {
	Platform       string
	APIKey         string
	APISecret      string
	ListenAddr     string
	WALDir         string
	CandleInterval string
	CandleLimit    int
	WebhookURL     string
	Accounts       []domain.StrategyConfig
}

type ConfigTmp struct {
	Platform       string       `yaml:"platform"`
	APIKey         string       `yaml:"api_key,omitempty"`
	APISecret      string       `yaml:"api_secret,omitempty"`
	ListenAddr     string       `yaml:"listen_addr,omitempty"`
	WALDir         string       `yaml:"wal_dir,omitempty"`
	CandleInterval string       `yaml:"candle_interval,omitempty"`
	CandleLimit    int          `yaml:"candle_limit,omitempty"`
	WebhookURL     string       `yaml:"webhook_url,omitempty"`
	Accounts       []AccountTmp `yaml:"accounts"`
}

type AccountTmp struct {
	Account                       string        `yaml:"account"`
	Pair                          string        `yaml:"pair"`
	Enabled                       *bool         `yaml:"enabled,omitempty"`
	Budget                        string        `yaml:"budget,omitempty"`
	MaxPositionFraction           string        `yaml:"max_position_fraction,omitempty"`
	MinConfidence                 *float64      `yaml:"min_confidence,omitempty"`
	EntryStepPercent              string        `yaml:"entry_step_percent,omitempty"`
	ExitStepPercent               string        `yaml:"exit_step_percent,omitempty"`
	HardStopLossPercent           string        `yaml:"hard_stop_loss_percent,omitempty"`
	TrailingTakeProfitPercent     string        `yaml:"trailing_take_profit_percent,omitempty"`
	KillSwitchMaxLossPercent      string        `yaml:"kill_switch_max_loss_percent,omitempty"`
	KillSwitchConsecutiveBreaches int           `yaml:"kill_switch_consecutive_breaches,omitempty"`
	KillSwitchCooldownMinutes     int           `yaml:"kill_switch_cooldown_minutes,omitempty"`
	AdvancedMode                  bool          `yaml:"advanced_mode,omitempty"`
	RangeBoundMode                bool          `yaml:"range_bound_mode,omitempty"`
	PaperTrading                  *bool         `yaml:"paper_trading,omitempty"`
	CycleInterval                 time.Duration `yaml:"cycle_interval,omitempty"`
}

// Get loads configuration from the yaml file named by --config, or from
// CLI flags describing a single account when no file is given.
func Get() (*Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "simulate", "exchange platform: binance, bybit or simulate")
	pairFlag := flag.String("pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	account := flag.String("account", "default", "account name")
	listenAddr := flag.String("listen", ":8088", "http listen address")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	pair, err := getPairFromString(*pairFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --pair provided, --pair=%s", *pairFlag)
	}

	return &Config{
		Platform:       *platform,
		ListenAddr:     *listenAddr,
		WALDir:         "./wal",
		CandleInterval: "1h",
		CandleLimit:    100,
		Accounts: []domain.StrategyConfig{
			domain.DefaultStrategyConfig(*account, pair),
		},
	}, nil
}

// Load reads configuration from a yaml file at path.
func Load(path string) (*Config, error) {
	return getYaml(path)
}

func getYaml(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, err
	}

	cfg := &Config{
		Platform:       tmp.Platform,
		APIKey:         tmp.APIKey,
		APISecret:      tmp.APISecret,
		ListenAddr:     tmp.ListenAddr,
		WALDir:         tmp.WALDir,
		CandleInterval: tmp.CandleInterval,
		CandleLimit:    tmp.CandleLimit,
		WebhookURL:     tmp.WebhookURL,
	}
	if cfg.Platform == "" {
		cfg.Platform = "simulate"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8088"
	}
	if cfg.WALDir == "" {
		cfg.WALDir = "./wal"
	}
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = "1h"
	}
	if cfg.CandleLimit == 0 {
		cfg.CandleLimit = 100
	}

	if len(tmp.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts defined in yaml config")
	}

	for _, a := range tmp.Accounts {
		account, err := accountFromTmp(a)
		if err != nil {
			return nil, err
		}
		cfg.Accounts = append(cfg.Accounts, account)
	}

	return cfg, nil
}

func accountFromTmp(a AccountTmp) (domain.StrategyConfig, error) {
	pair, err := getPairFromString(a.Pair)
	if err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("incorrect 'pair' param for account %q: %s, error: %w", a.Account, a.Pair, err)
	}

	account := domain.DefaultStrategyConfig(a.Account, pair)

	if a.Enabled != nil {
		account.Enabled = *a.Enabled
	}
	if a.PaperTrading != nil {
		account.PaperTrading = *a.PaperTrading
	}
	if a.MinConfidence != nil {
		account.MinConfidence = *a.MinConfidence
	}
	account.AdvancedMode = a.AdvancedMode
	account.RangeBoundMode = a.RangeBoundMode
	if a.KillSwitchConsecutiveBreaches != 0 {
		account.KillSwitchConsecutiveBreaches = a.KillSwitchConsecutiveBreaches
	}
	if a.KillSwitchCooldownMinutes != 0 {
		account.KillSwitchCooldownMinutes = a.KillSwitchCooldownMinutes
	}
	if a.CycleInterval != 0 {
		account.CycleInterval = a.CycleInterval
	}

	decimals := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"budget", a.Budget, &account.Budget},
		{"max_position_fraction", a.MaxPositionFraction, &account.MaxPositionFraction},
		{"entry_step_percent", a.EntryStepPercent, &account.EntryStepPercent},
		{"exit_step_percent", a.ExitStepPercent, &account.ExitStepPercent},
		{"hard_stop_loss_percent", a.HardStopLossPercent, &account.HardStopLossPercent},
		{"trailing_take_profit_percent", a.TrailingTakeProfitPercent, &account.TrailingTakeProfitPercent},
		{"kill_switch_max_loss_percent", a.KillSwitchMaxLossPercent, &account.KillSwitchMaxLossPercent},
	}
	for _, d := range decimals {
		if d.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(d.raw)
		if err != nil {
			return domain.StrategyConfig{}, fmt.Errorf("incorrect '%s' param for account %q (must be a decimal), error: %w", d.name, a.Account, err)
		}
		*d.dst = v
	}

	if err := account.Validate(); err != nil {
		return domain.StrategyConfig{}, fmt.Errorf("invalid config for account %q: %w", a.Account, err)
	}

	return account, nil
}

func getPairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.Pair{From: pairElements[0], To: pairElements[1]}, nil
}
