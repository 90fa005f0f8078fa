// Package setup implements the first-run terminal configuration wizard.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wardenbot/warden/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// resulting yaml config to config.gen.yaml.
func RunTUI() error {
	var (
		platform         string
		apiKey           string
		apiSecret        string
		account          string
		pair             string
		mode             string
		budgetStr        string
		stepStr          string
		stopLossStr      string
		takeProfitStr    string
		maxLossStr       string
		breachesStr      string
		cooldownStr      string
		cycleIntervalStr string
		paper            bool
		confirm          bool
	)

	// defaults
	account = "default"
	pair = "BTC_USDT"
	budgetStr = "10000"
	stepStr = "10"
	stopLossStr = "3.0"
	takeProfitStr = "2.5"
	maxLossStr = "5.0"
	breachesStr = "3"
	cooldownStr = "60"
	cycleIntervalStr = "1m"
	paper = true

	// step 1: platform
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Unattended trading with a leash on it.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Simulation", "simulate"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	if platform != "simulate" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 2: CREDENTIALS"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API Key").
					Value(&apiKey),
				huh.NewInput().
					Title("API Secret").
					Value(&apiSecret).
					EchoMode(huh.EchoModePassword),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// step 3: account and asset
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: ACCOUNT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account Name").
				Value(&account).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("account cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&pair).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("pair cannot be empty")
					}
					if !containsUnderscore(s) {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 4: strategy mode
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: STRATEGY MODE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose signal mode").
				Options(
					huh.NewOption("Standard (indicator ensemble)", "standard"),
					huh.NewOption("Advanced (forecast + regime gating)", "advanced"),
					huh.NewOption("Range-bound (mean reversion overlay)", "range"),
				).
				Value(&mode),
			huh.NewConfirm().
				Title("Paper trading?").
				Description("Simulated fills, no live orders").
				Value(&paper),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 5: sizing and risk
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: SIZING AND RISK"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Budget (quote currency)").
				Value(&budgetStr).
				Validate(validatePositive),
			huh.NewInput().
				Title("Step % per trade").
				Description("Base increment of max position per signal (1-100)").
				Value(&stepStr).
				Validate(validatePercent),
			huh.NewInput().
				Title("Hard Stop Loss %").
				Description("Unrealized loss that forces a full exit (e.g. 3.0)").
				Value(&stopLossStr).
				Validate(validatePositive),
			huh.NewInput().
				Title("Trailing Take Profit %").
				Description("Unrealized gain that books partial profit (e.g. 2.5)").
				Value(&takeProfitStr).
				Validate(validatePositive),
			huh.NewInput().
				Title("Kill-Switch Max Loss %").
				Description("P&L breach level counted toward the halt (e.g. 5.0)").
				Value(&maxLossStr).
				Validate(validatePositive),
			huh.NewInput().
				Title("Kill-Switch Consecutive Breaches").
				Value(&breachesStr),
			huh.NewInput().
				Title("Kill-Switch Cooldown (minutes)").
				Value(&cooldownStr),
			huh.NewInput().
				Title("Cycle Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&cycleIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WARDEN CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nAccount: %s\nPair: %s\nMode: %s\nPaper: %t\nBudget: %s\nStep: %s%%\nInterval: %s\n",
		platform, account, pair, mode, paper, budgetStr, stepStr, cycleIntervalStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cycleInterval, _ := time.ParseDuration(cycleIntervalStr)
	breaches, _ := parseInt(breachesStr)
	cooldown, _ := parseInt(cooldownStr)

	cfgTmp := config.ConfigTmp{
		Platform:  platform,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Accounts: []config.AccountTmp{
			{
				Account:                       account,
				Pair:                          pair,
				Budget:                        budgetStr,
				EntryStepPercent:              stepStr,
				ExitStepPercent:               stepStr,
				HardStopLossPercent:           stopLossStr,
				TrailingTakeProfitPercent:     takeProfitStr,
				KillSwitchMaxLossPercent:      maxLossStr,
				KillSwitchConsecutiveBreaches: breaches,
				KillSwitchCooldownMinutes:     cooldown,
				AdvancedMode:                  mode == "advanced",
				RangeBoundMode:                mode == "range",
				PaperTrading:                  &paper,
				CycleInterval:                 cycleInterval,
			},
		},
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bot...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validatePercent(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThan(decimal.NewFromInt(1)) || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 1 and 100")
	}
	return nil
}

func parseInt(s string) (int, error) {
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func containsUnderscore(s string) bool {
	for _, r := range s {
		if r == '_' {
			return true
		}
	}
	return false
}
