package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iacob/internal/models"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "stock", cfg.Market)
	assert.Equal(t, TradingModeLedger, cfg.Trading.Mode)
	assert.Equal(t, 100, cfg.Trading.HistoryLimit)
	assert.Equal(t, 100, cfg.Agent.MaxTurns)
	assert.Equal(t, 20*time.Second, cfg.Pricing.GetAttemptTimeout())
	assert.Equal(t, 30*time.Second, cfg.Clients.Broker.GetTimeout())
}

func TestConfig_MarketEnvOverride(t *testing.T) {
	t.Setenv("IACOB_MARKET_TYPE", "CRYPTO")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	m, err := cfg.ActiveMarket()
	require.NoError(t, err)
	assert.Equal(t, models.MarketCrypto, m)
}

func TestConfig_BrokerKeyAlias(t *testing.T) {
	t.Setenv("BROKER_API_KEY", "")
	t.Setenv("IBKR_API_KEY", "from-ibkr")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "from-ibkr", cfg.Clients.Broker.APIKey)
}

func TestConfig_InvalidTimeoutFallsBack(t *testing.T) {
	cfg := &BrokerConfig{Timeout: "soon"}
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iacob.toml")
	content := `
market = "crypto"

[trading]
mode = "broker"
history_limit = 25

[markets.crypto]
portfolio_file = "/var/lib/iacob/crypto.json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("IACOB_TRADING_MODE", "LEDGER")

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "crypto", cfg.Market)
	assert.Equal(t, TradingModeLedger, cfg.Trading.Mode)
	assert.Equal(t, 25, cfg.Trading.HistoryLimit)
	assert.Equal(t, "/var/lib/iacob/crypto.json", cfg.PortfolioPath(models.MarketCrypto))
	assert.Equal(t, filepath.Join("data", "portfolio_stock.json"), cfg.PortfolioPath(models.MarketStock))
}

func TestLoadConfig_RejectsUnknownMarket(t *testing.T) {
	t.Setenv("IACOB_MARKET_TYPE", "forex")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfig_ValidateRequired(t *testing.T) {
	cfg := &Config{Market: "bonds", Trading: TradingConfig{Mode: "paper"}}
	missing := cfg.ValidateRequired()
	assert.Len(t, missing, 4)

	cfg = NewDefaultConfig()
	cfg.Clients.Gemini.APIKey = "g"
	cfg.Clients.Broker.APIKey = "b"
	assert.Empty(t, cfg.ValidateRequired())

	cfg.Trading.BalanceSource = "ledger"
	cfg.Clients.Broker.APIKey = ""
	assert.Empty(t, cfg.ValidateRequired())

	cfg.Trading.Mode = TradingModeBroker
	assert.Len(t, cfg.ValidateRequired(), 1)
}

func TestReportConfig_ChartFile(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "resource/output/chart/cash-crypto.png", cfg.Report.ChartFile(models.MarketCrypto))
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.GetRunTimeout())
}

func TestConfig_ChartPathCanBeDisabled(t *testing.T) {
	t.Setenv("IACOB_CHART_PATH", "")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Empty(t, cfg.Report.ChartFile(models.MarketStock))
}
