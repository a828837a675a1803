package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "secret"
	return cfg
}

func TestDefaults_ValidOnceWalletSet(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg = validConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.Submit.ResubmitInterval.Duration)
	assert.Equal(t, uint64(10000), cfg.Jupiter.MaxPriorityFeeLamports)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.RPC.Endpoint = "ftp://node"
	cfg.RPC.WSEndpoint = "https://node"
	cfg.RPC.Commitment = "recent"
	cfg.Submit.PollInterval.Duration = 0
	cfg.Bot.BuySlippageBps = 0
	cfg.Bot.SellSlippageBps = 10001
	cfg.Jupiter.PriorityLevel = "ultra"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"rpc: endpoint",
		"rpc: ws_endpoint",
		"unknown commitment",
		"poll_interval",
		"buy_slippage_bps",
		"sell_slippage_bps",
		"priority_level",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_TOMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[rpc]
endpoint = "https://rpc.example.com"
commitment = "finalized"

[submit]
resubmit_interval = "1500ms"

[bot]
buy_amount_sol = 0.25
sell_after = "1h"
`), 0o600))

	t.Setenv("RPC_WS_ENDPOINT", "wss://ws.example.com")
	t.Setenv("PRIVATE_KEY", "from-env")
	t.Setenv("BOT_SELL_SLIPPAGE_BPS", "250")
	t.Setenv("SUBMIT_POLL_INTERVAL", "750ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPC.Endpoint)
	assert.Equal(t, "wss://ws.example.com", cfg.RPC.WSEndpoint)
	assert.Equal(t, "finalized", cfg.RPC.Commitment)
	assert.Equal(t, "from-env", cfg.Wallet.PrivateKey)
	assert.Equal(t, 1500*time.Millisecond, cfg.Submit.ResubmitInterval.Duration)
	assert.Equal(t, 750*time.Millisecond, cfg.Submit.PollInterval.Duration)
	assert.Equal(t, 0.25, cfg.Bot.BuyAmountSOL)
	assert.Equal(t, time.Hour, cfg.Bot.SellAfter.Duration)
	assert.Equal(t, 250, cfg.Bot.SellSlippageBps)
	// untouched defaults survive
	assert.Equal(t, 100, cfg.Bot.BuySlippageBps)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("JUPITER_URL", "http://localhost:8080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Jupiter.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[submit]\npoll_interval = \"soon\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
