package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when path is empty) over the
// defaults, loads .env if present, and applies environment overrides. The
// result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose environment variable is set.
// Secrets and endpoints are expected to arrive this way.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.RPC.Endpoint, "RPC_ENDPOINT")
	setStr(&cfg.RPC.WSEndpoint, "RPC_WS_ENDPOINT")
	setStr(&cfg.RPC.Commitment, "RPC_COMMITMENT")

	setStr(&cfg.Wallet.PrivateKey, "PRIVATE_KEY")
	setStr(&cfg.Wallet.KeypairPath, "KEYPAIR_PATH")

	setStr(&cfg.Jupiter.BaseURL, "JUPITER_URL")
	setUint64(&cfg.Jupiter.MaxPriorityFeeLamports, "JUPITER_MAX_PRIORITY_FEE_LAMPORTS")
	setStr(&cfg.Jupiter.PriorityLevel, "JUPITER_PRIORITY_LEVEL")

	setDuration(&cfg.Submit.ResubmitInterval, "SUBMIT_RESUBMIT_INTERVAL")
	setDuration(&cfg.Submit.PollInterval, "SUBMIT_POLL_INTERVAL")
	setDuration(&cfg.Submit.BlockHeightInterval, "SUBMIT_BLOCK_HEIGHT_INTERVAL")

	setFloat64(&cfg.Bot.BuyAmountSOL, "BOT_BUY_AMOUNT_SOL")
	setInt(&cfg.Bot.BuySlippageBps, "BOT_BUY_SLIPPAGE_BPS")
	setInt(&cfg.Bot.SellSlippageBps, "BOT_SELL_SLIPPAGE_BPS")
	setDuration(&cfg.Bot.SellAfter, "BOT_SELL_AFTER")

	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.ClickHouse.DSN, "CLICKHOUSE_DSN")

	setStr(&cfg.Server.MetricsAddr, "METRICS_ADDR")

	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setStr(&cfg.Log.File, "LOG_FILE")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
