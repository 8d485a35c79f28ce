package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/iacob/internal/models"
)

// Config holds all configuration for Iacob
type Config struct {
	Environment string          `toml:"environment"`
	Market      string          `toml:"market"` // active market for this process: "stock" or "crypto"
	Markets     MarketsConfig   `toml:"markets"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Trading     TradingConfig   `toml:"trading"`
	Pricing     PricingConfig   `toml:"pricing"`
	Agent       AgentConfig     `toml:"agent"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Report      ReportConfig    `toml:"report"`
	Logging     LoggingConfig   `toml:"logging"`
}

// MarketsConfig holds the per-market file layout.
type MarketsConfig struct {
	Stock  MarketConfig `toml:"stock"`
	Crypto MarketConfig `toml:"crypto"`
}

// MarketConfig holds the files used by one market's assistant.
type MarketConfig struct {
	Name          string `toml:"name"`
	PortfolioFile string `toml:"portfolio_file"` // relative to storage.data_path unless absolute
	PromptFile    string `toml:"prompt_file"`
	ThreadDir     string `toml:"thread_dir"`
}

// StorageConfig holds local file and remote ledger configuration.
type StorageConfig struct {
	DataPath string          `toml:"data_path"`
	Ledger   SurrealDBConfig `toml:"ledger"`
}

// SurrealDBConfig holds SurrealDB connection settings for the trade ledger.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Broker       BrokerConfig       `toml:"broker"`
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Yahoo        YahooConfig        `toml:"yahoo"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Twilio       TwilioConfig       `toml:"twilio"`
}

// BrokerConfig holds remote broker API configuration
type BrokerConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *BrokerConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// AlphaVantageConfig holds AlphaVantage API configuration
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// YahooConfig toggles the Yahoo Finance quote source.
type YahooConfig struct {
	Enabled bool `toml:"enabled"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// TwilioConfig holds WhatsApp delivery settings
type TwilioConfig struct {
	BaseURL        string `toml:"base_url"`
	AccountSID     string `toml:"account_sid"`
	AuthToken      string `toml:"auth_token"`
	ContentSID     string `toml:"content_sid"`
	FromNumber     string `toml:"from_number"`
	RecipientPhone string `toml:"recipient_number"`
	Timezone       string `toml:"timezone"`
}

// Complete reports whether enough settings are present to send a message.
func (c *TwilioConfig) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.RecipientPhone != ""
}

// TradingConfig controls how trades are executed and recorded.
type TradingConfig struct {
	Mode          string `toml:"mode"`           // "broker" or "ledger"
	BalanceSource string `toml:"balance_source"` // "broker" or "ledger"
	HistoryLimit  int    `toml:"history_limit"`
}

// Trading modes
const (
	TradingModeBroker = "broker"
	TradingModeLedger = "ledger"
)

// PricingConfig controls the price resolver.
type PricingConfig struct {
	AttemptTimeout string `toml:"attempt_timeout"`
	Concurrency    int    `toml:"concurrency"`
}

// GetAttemptTimeout parses and returns the per-source timeout
func (c *PricingConfig) GetAttemptTimeout() time.Duration {
	return parseDuration(c.AttemptTimeout, 20*time.Second)
}

// AgentConfig controls the orchestration loop.
type AgentConfig struct {
	MaxTurns int  `toml:"max_turns"`
	Notify   bool `toml:"notify"`
}

// SchedulerConfig holds the cron schedule for serve mode.
type SchedulerConfig struct {
	Schedule   string `toml:"schedule"`    // six-field cron expression (with seconds)
	RunTimeout string `toml:"run_timeout"` // caps one scheduled session
}

// GetRunTimeout parses and returns the per-session timeout
func (c *SchedulerConfig) GetRunTimeout() time.Duration {
	return parseDuration(c.RunTimeout, 30*time.Minute)
}

// ReportConfig controls the artifacts written after each run.
type ReportConfig struct {
	ChartPath string `toml:"chart_path"` // may contain {market}; empty disables the chart
}

// ChartFile resolves the chart path for a market.
func (c *ReportConfig) ChartFile(market models.Market) string {
	return strings.ReplaceAll(c.ChartPath, "{market}", market.String())
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Market:      string(models.MarketStock),
		Markets: MarketsConfig{
			Stock: MarketConfig{
				Name:          "Stock Assistant",
				PortfolioFile: "portfolio_stock.json",
				PromptFile:    "resource/prompt/system-prompt-stock.md",
				ThreadDir:     "resource/output/thread/stock",
			},
			Crypto: MarketConfig{
				Name:          "Crypto Assistant",
				PortfolioFile: "portfolio_crypto.json",
				PromptFile:    "resource/prompt/system-prompt-crypto.md",
				ThreadDir:     "resource/output/thread/crypto",
			},
		},
		Storage: StorageConfig{
			DataPath: "data",
			Ledger: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "iacob",
				Database:  "ledger",
				Username:  "root",
				Password:  "root",
			},
		},
		Clients: ClientsConfig{
			Broker: BrokerConfig{
				BaseURL:   "https://broker-simulator.onrender.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 1,
				Timeout:   "30s",
			},
			Yahoo: YahooConfig{Enabled: true},
			Gemini: GeminiConfig{
				Model: "gemini-3-flash-preview",
			},
			Twilio: TwilioConfig{
				BaseURL:  "https://api.twilio.com",
				Timezone: "America/Bogota",
			},
		},
		Trading: TradingConfig{
			Mode:          TradingModeLedger,
			BalanceSource: "broker",
			HistoryLimit:  100,
		},
		Pricing: PricingConfig{
			AttemptTimeout: "20s",
			Concurrency:    4,
		},
		Agent: AgentConfig{
			MaxTurns: 100,
			Notify:   true,
		},
		Scheduler: SchedulerConfig{
			Schedule:   "0 30 14 * * MON-FRI",
			RunTimeout: "30m",
		},
		Report: ReportConfig{
			ChartPath: "resource/output/chart/cash-{market}.png",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console", "file"},
			FilePath: "./logs/iacob-{timestamp}.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; variables already
// present in the environment win over it.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if _, err := config.ActiveMarket(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("IACOB_ENV"); env != "" {
		config.Environment = env
	}

	if market := os.Getenv("IACOB_MARKET_TYPE"); market != "" {
		config.Market = market
	}

	if level := os.Getenv("IACOB_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("IACOB_DATA_PATH"); path != "" {
		config.Storage.DataPath = path
	}

	if mode := os.Getenv("IACOB_TRADING_MODE"); mode != "" {
		config.Trading.Mode = strings.ToLower(mode)
	}

	if src := os.Getenv("IACOB_BALANCE_SOURCE"); src != "" {
		config.Trading.BalanceSource = strings.ToLower(src)
	}

	if schedule := os.Getenv("IACOB_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	if turns := os.Getenv("IACOB_MAX_TURNS"); turns != "" {
		if n, err := strconv.Atoi(turns); err == nil && n > 0 {
			config.Agent.MaxTurns = n
		}
	}

	if v, ok := os.LookupEnv("IACOB_CHART_PATH"); ok {
		config.Report.ChartPath = v
	}

	// Ledger
	if v := os.Getenv("SURREALDB_ADDRESS"); v != "" {
		config.Storage.Ledger.Address = v
	}
	if v := os.Getenv("SURREALDB_USER"); v != "" {
		config.Storage.Ledger.Username = v
	}
	if v := os.Getenv("SURREALDB_PASS"); v != "" {
		config.Storage.Ledger.Password = v
	}

	// Clients
	if v := firstEnv("BROKER_API_KEY", "IBKR_API_KEY"); v != "" {
		config.Clients.Broker.APIKey = v
	}
	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		config.Clients.Broker.BaseURL = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		config.Clients.AlphaVantage.APIKey = v
	}
	if v := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		config.Clients.Gemini.Model = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		config.Clients.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		config.Clients.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_CONTENT_SID"); v != "" {
		config.Clients.Twilio.ContentSID = v
	}
	if v := os.Getenv("TWILIO_WHATSAPP_NUMBER"); v != "" {
		config.Clients.Twilio.FromNumber = v
	}
	if v := os.Getenv("WHATSAPP_RECIPIENT_NUMBER"); v != "" {
		config.Clients.Twilio.RecipientPhone = v
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ActiveMarket parses the configured market.
func (c *Config) ActiveMarket() (models.Market, error) {
	return models.ParseMarket(c.Market)
}

// MarketConfig returns the file layout for a market.
func (c *Config) MarketConfig(market models.Market) MarketConfig {
	if market == models.MarketCrypto {
		return c.Markets.Crypto
	}
	return c.Markets.Stock
}

// PortfolioPath resolves a market's holdings snapshot path.
func (c *Config) PortfolioPath(market models.Market) string {
	file := c.MarketConfig(market).PortfolioFile
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Storage.DataPath, file)
}

// ValidateRequired returns the names of settings a full agent run cannot do
// without.
func (c *Config) ValidateRequired() []string {
	var missing []string

	if _, err := c.ActiveMarket(); err != nil {
		missing = append(missing, "market (IACOB_MARKET_TYPE)")
	}
	if c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key (GEMINI_API_KEY)")
	}
	if c.Storage.Ledger.Address == "" {
		missing = append(missing, "storage.ledger.address (SURREALDB_ADDRESS)")
	}
	switch c.Trading.Mode {
	case TradingModeBroker:
		if c.Clients.Broker.APIKey == "" {
			missing = append(missing, "clients.broker.api_key (BROKER_API_KEY)")
		}
	case TradingModeLedger:
	default:
		missing = append(missing, "trading.mode (broker or ledger)")
	}
	if c.Trading.BalanceSource == "broker" && c.Clients.Broker.APIKey == "" {
		missing = append(missing, "clients.broker.api_key (required by balance_source=broker)")
	}

	return missing
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
