// Package config defines the engine configuration, its defaults and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	RPC        RPCConfig        `toml:"rpc"`
	Wallet     WalletConfig     `toml:"wallet"`
	Jupiter    JupiterConfig    `toml:"jupiter"`
	Submit     SubmitConfig     `toml:"submit"`
	Balance    BalanceConfig    `toml:"balance"`
	Swap       SwapConfig       `toml:"swap"`
	Bot        BotConfig        `toml:"bot"`
	Postgres   PostgresConfig   `toml:"postgres"`
	ClickHouse ClickHouseConfig `toml:"clickhouse"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// RPCConfig holds the Solana node endpoints.
type RPCConfig struct {
	Endpoint   string   `toml:"endpoint"`
	WSEndpoint string   `toml:"ws_endpoint"`
	Commitment string   `toml:"commitment"`
	Timeout    duration `toml:"timeout"`
	MaxRetries int      `toml:"max_retries"`
}

// WalletConfig selects the trading key. PrivateKey wins over KeypairPath.
type WalletConfig struct {
	PrivateKey  string `toml:"private_key"`
	KeypairPath string `toml:"keypair_path"`
}

// JupiterConfig configures the quote and swap-build service.
type JupiterConfig struct {
	BaseURL                string   `toml:"base_url"`
	Timeout                duration `toml:"timeout"`
	RetryCount             int      `toml:"retry_count"`
	MaxPriorityFeeLamports uint64   `toml:"max_priority_fee_lamports"`
	PriorityLevel          string   `toml:"priority_level"`
}

// SubmitConfig holds the submission cadences.
type SubmitConfig struct {
	ResubmitInterval    duration `toml:"resubmit_interval"`
	PollInterval        duration `toml:"poll_interval"`
	BlockHeightInterval duration `toml:"block_height_interval"`
}

// BalanceConfig bounds balance resolution lookups.
type BalanceConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	RetryDelay  duration `toml:"retry_delay"`
}

// SwapConfig bounds the post-confirmation success check.
type SwapConfig struct {
	PostCheckAttempts int      `toml:"post_check_attempts"`
	PostCheckDelay    duration `toml:"post_check_delay"`
}

// BotConfig holds the trading loop parameters.
type BotConfig struct {
	BuyAmountSOL    float64  `toml:"buy_amount_sol"`
	BuyInterval     duration `toml:"buy_interval"`
	SellInterval    duration `toml:"sell_interval"`
	BuySlippageBps  int      `toml:"buy_slippage_bps"`
	SellSlippageBps int      `toml:"sell_slippage_bps"`
	// SellAfter is the holding period of the default hold-then-sell decider.
	SellAfter duration `toml:"sell_after"`
}

// PostgresConfig holds the holdings/history database. Empty DSN means in-memory.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ClickHouseConfig holds the submission telemetry database. Empty DSN means in-memory.
type ClickHouseConfig struct {
	DSN string `toml:"dsn"`
}

// ServerConfig holds the ops HTTP server.
type ServerConfig struct {
	MetricsAddr     string   `toml:"metrics_addr"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// LogConfig configures logging. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func dur(d time.Duration) duration { return duration{Duration: d} }

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		RPC: RPCConfig{
			Endpoint:   "https://api.mainnet-beta.solana.com",
			WSEndpoint: "wss://api.mainnet-beta.solana.com",
			Commitment: "confirmed",
			Timeout:    dur(30 * time.Second),
			MaxRetries: 3,
		},
		Jupiter: JupiterConfig{
			BaseURL:                "https://quote-api.jup.ag/v6",
			Timeout:                dur(30 * time.Second),
			RetryCount:             3,
			MaxPriorityFeeLamports: 10000,
			PriorityLevel:          "veryHigh",
		},
		Submit: SubmitConfig{
			ResubmitInterval:    dur(2 * time.Second),
			PollInterval:        dur(2 * time.Second),
			BlockHeightInterval: dur(2 * time.Second),
		},
		Balance: BalanceConfig{
			MaxAttempts: 5,
			RetryDelay:  dur(2 * time.Second),
		},
		Swap: SwapConfig{
			PostCheckAttempts: 10,
			PostCheckDelay:    dur(3 * time.Second),
		},
		Bot: BotConfig{
			BuyAmountSOL:    0.01,
			BuyInterval:     dur(5 * time.Second),
			SellInterval:    dur(5 * time.Second),
			BuySlippageBps:  100,
			SellSlippageBps: 100,
			SellAfter:       dur(10 * time.Minute),
		},
		Server: ServerConfig{
			MetricsAddr:     ":9090",
			ShutdownTimeout: dur(30 * time.Second),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

var (
	validCommitments    = map[string]bool{"processed": true, "confirmed": true, "finalized": true}
	validPriorityLevels = map[string]bool{"medium": true, "high": true, "veryHigh": true}
	validLogLevels      = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	// RPC
	if err := checkURL(c.RPC.Endpoint, "http", "https"); err != nil {
		errs = append(errs, "rpc: endpoint "+err.Error())
	}
	if c.RPC.WSEndpoint != "" {
		if err := checkURL(c.RPC.WSEndpoint, "ws", "wss"); err != nil {
			errs = append(errs, "rpc: ws_endpoint "+err.Error())
		}
	}
	if !validCommitments[c.RPC.Commitment] {
		errs = append(errs, fmt.Sprintf("rpc: unknown commitment %q (valid: processed, confirmed, finalized)", c.RPC.Commitment))
	}
	if c.RPC.MaxRetries < 0 {
		errs = append(errs, "rpc: max_retries must be >= 0")
	}

	// Wallet
	if c.Wallet.PrivateKey == "" && c.Wallet.KeypairPath == "" {
		errs = append(errs, "wallet: either private_key or keypair_path must be set")
	}

	// Jupiter
	if err := checkURL(c.Jupiter.BaseURL, "http", "https"); err != nil {
		errs = append(errs, "jupiter: base_url "+err.Error())
	}
	if !validPriorityLevels[c.Jupiter.PriorityLevel] {
		errs = append(errs, fmt.Sprintf("jupiter: unknown priority_level %q (valid: medium, high, veryHigh)", c.Jupiter.PriorityLevel))
	}

	// Submit
	if c.Submit.ResubmitInterval.Duration <= 0 {
		errs = append(errs, "submit: resubmit_interval must be > 0")
	}
	if c.Submit.PollInterval.Duration <= 0 {
		errs = append(errs, "submit: poll_interval must be > 0")
	}
	if c.Submit.BlockHeightInterval.Duration <= 0 {
		errs = append(errs, "submit: block_height_interval must be > 0")
	}

	// Balance and swap
	if c.Balance.MaxAttempts < 1 {
		errs = append(errs, "balance: max_attempts must be >= 1")
	}
	if c.Swap.PostCheckAttempts < 1 {
		errs = append(errs, "swap: post_check_attempts must be >= 1")
	}

	// Bot
	if c.Bot.BuyAmountSOL <= 0 {
		errs = append(errs, "bot: buy_amount_sol must be > 0")
	}
	if c.Bot.BuyInterval.Duration <= 0 || c.Bot.SellInterval.Duration <= 0 {
		errs = append(errs, "bot: buy_interval and sell_interval must be > 0")
	}
	if c.Bot.BuySlippageBps < 1 || c.Bot.BuySlippageBps > 10000 {
		errs = append(errs, fmt.Sprintf("bot: buy_slippage_bps must be 1-10000, got %d", c.Bot.BuySlippageBps))
	}
	if c.Bot.SellSlippageBps < 1 || c.Bot.SellSlippageBps > 10000 {
		errs = append(errs, fmt.Sprintf("bot: sell_slippage_bps must be 1-10000, got %d", c.Bot.SellSlippageBps))
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: trace, debug, info, warn, error)", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid url: %v", err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must use %s", raw, strings.Join(schemes, " or "))
}
