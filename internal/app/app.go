// Package app wires configuration, clients, storage and services into a
// runnable trading assistant shared by every cmd/iacob command.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/agent"
	"github.com/bobmcallan/iacob/internal/clients/alphavantage"
	"github.com/bobmcallan/iacob/internal/clients/broker"
	"github.com/bobmcallan/iacob/internal/clients/gemini"
	"github.com/bobmcallan/iacob/internal/clients/twilio"
	"github.com/bobmcallan/iacob/internal/clients/yahoo"
	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
	"github.com/bobmcallan/iacob/internal/services/balance"
	"github.com/bobmcallan/iacob/internal/services/ledger"
	"github.com/bobmcallan/iacob/internal/services/notify"
	"github.com/bobmcallan/iacob/internal/services/portfolio"
	"github.com/bobmcallan/iacob/internal/services/price"
	"github.com/bobmcallan/iacob/internal/services/report"
	"github.com/bobmcallan/iacob/internal/services/thread"
	"github.com/bobmcallan/iacob/internal/services/trading"
	"github.com/bobmcallan/iacob/internal/storage/holdings"
	"github.com/bobmcallan/iacob/internal/storage/surrealdb"
)

// App holds all initialized clients and services for the active market.
type App struct {
	Config *common.Config
	Logger *common.Logger
	Market models.Market

	Ledger  *surrealdb.Manager
	Clients *Clients

	PriceResolver    *price.Resolver
	BalanceSource    interfaces.BalanceSource
	TradeLedger      *ledger.Ledger
	PortfolioService *portfolio.Service
	TradeExecutor    *trading.Executor
	Notifier         *notify.Service
	ReportService    *report.Service
	ThreadStore      *thread.Store
	StartupTime      time.Time

	logCloser io.Closer
}

// Clients holds the optional API clients. A field is nil when its client is
// not configured; the interface-typed fields are never typed nils.
type Clients struct {
	Broker       interfaces.BrokerClient
	AlphaVantage interfaces.AlphaVantageClient
	Yahoo        interfaces.YahooClient
	Gemini       *gemini.Client
	WhatsApp     interfaces.WhatsAppClient
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: the explicit path, IACOB_CONFIG,
// iacob.toml next to the binary, then config/iacob.toml for development.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("IACOB_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "iacob.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/iacob.toml"
		}
	}
	return configPath
}

// NewApp initializes logging, the remote ledger, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath, getBinaryDir()))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := common.NewLoggerFromConfig(config.Logging, startupStart)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	market, err := config.ActiveMarket()
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	for _, missing := range config.ValidateRequired() {
		logger.Warn().Str("setting", missing).Msg("Required setting not configured")
	}

	ledgerManager, err := surrealdb.NewManager(ctx, logger, config.Storage.Ledger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	clients := newClients(ctx, config, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Market:      market,
		Ledger:      ledgerManager,
		Clients:     clients,
		StartupTime: startupStart,
		logCloser:   logCloser,
	}
	a.initServices(ledgerManager.TradeStore(), ledgerManager.BalanceStore())

	logger.Info().
		Str("market", market.String()).
		Str("trading_mode", a.TradeExecutor.Mode()).
		Strs("price_sources", a.PriceResolver.Sources(market)).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newClients builds each client whose credentials are configured.
func newClients(ctx context.Context, config *common.Config, logger *common.Logger) *Clients {
	c := &Clients{}
	cc := config.Clients

	if cc.Broker.APIKey != "" {
		c.Broker = broker.NewClient(cc.Broker.APIKey,
			broker.WithBaseURL(cc.Broker.BaseURL),
			broker.WithLogger(logger),
			broker.WithRateLimit(cc.Broker.RateLimit),
			broker.WithTimeout(cc.Broker.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Broker API key not configured - broker quotes and orders unavailable")
	}

	if cc.AlphaVantage.APIKey != "" {
		c.AlphaVantage = alphavantage.NewClient(cc.AlphaVantage.APIKey,
			alphavantage.WithBaseURL(cc.AlphaVantage.BaseURL),
			alphavantage.WithLogger(logger),
			alphavantage.WithRateLimit(cc.AlphaVantage.RateLimit),
			alphavantage.WithTimeout(cc.AlphaVantage.GetTimeout()),
		)
	}

	if cc.Yahoo.Enabled {
		c.Yahoo = yahoo.NewClient(yahoo.WithLogger(logger))
	}

	if cc.Gemini.APIKey != "" {
		client, err := gemini.NewClient(ctx, cc.Gemini.APIKey,
			gemini.WithLogger(logger),
			gemini.WithModel(cc.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			c.Gemini = client
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - agent runs will be unavailable")
	}

	if cc.Twilio.Complete() {
		c.WhatsApp = twilio.NewClient(cc.Twilio.AccountSID, cc.Twilio.AuthToken, cc.Twilio.FromNumber,
			twilio.WithBaseURL(cc.Twilio.BaseURL),
			twilio.WithContentTemplate(cc.Twilio.ContentSID),
			twilio.WithLogger(logger),
		)
	}

	return c
}

// geminiClient returns the Gemini client as an interface, nil when absent.
func (c *Clients) geminiClient() interfaces.GeminiClient {
	if c.Gemini == nil {
		return nil
	}
	return c.Gemini
}

// newPriceResolver builds the per-market fallback chains. Stocks try the
// broker, AlphaVantage, Yahoo then a search-grounded model answer; crypto
// skips Yahoo.
func newPriceResolver(config *common.Config, clients *Clients, logger *common.Logger) *price.Resolver {
	ai := clients.geminiClient()
	return price.NewResolver(logger,
		price.WithChain(models.MarketStock,
			price.NewBrokerSource(clients.Broker),
			price.NewAlphaVantageSource(clients.AlphaVantage),
			price.NewYahooSource(clients.Yahoo),
			price.NewAISource(ai),
		),
		price.WithChain(models.MarketCrypto,
			price.NewBrokerSource(clients.Broker),
			price.NewAlphaVantageSource(clients.AlphaVantage),
			price.NewAISource(ai),
		),
		price.WithAttemptTimeout(config.Pricing.GetAttemptTimeout()),
	)
}

// newBalanceSource reads cash from the broker when configured to, and from
// the ledger's balance rows otherwise.
func newBalanceSource(config *common.Config, clients *Clients, balances interfaces.BalanceStore, logger *common.Logger) interfaces.BalanceSource {
	if config.Trading.BalanceSource == common.TradingModeBroker {
		if clients.Broker != nil {
			return balance.NewBrokerSource(clients.Broker, logger)
		}
		logger.Warn().Msg("Balance source is broker but no broker is configured, using ledger balances")
	}
	return balance.NewLedgerSource(balances, models.InitialInvestment, logger)
}

// initServices builds the service graph over the given ledger stores.
func (a *App) initServices(trades interfaces.TradeStore, balances interfaces.BalanceStore) {
	config, logger, clients := a.Config, a.Logger, a.Clients

	a.PriceResolver = newPriceResolver(config, clients, logger)
	a.BalanceSource = newBalanceSource(config, clients, balances, logger)
	a.TradeLedger = ledger.NewLedger(trades, balances, logger)

	a.PortfolioService = portfolio.NewService(
		holdings.NewStore(config.PortfolioPath, logger),
		a.BalanceSource,
		a.TradeLedger,
		a.PriceResolver,
		logger,
		portfolio.WithHistoryLimit(config.Trading.HistoryLimit),
		portfolio.WithConcurrency(config.Pricing.Concurrency),
	)

	var opts []trading.Option
	if config.Trading.Mode == common.TradingModeBroker {
		if clients.Broker != nil {
			opts = append(opts, trading.WithBroker(clients.Broker))
		} else {
			logger.Warn().Msg("Trading mode is broker but no broker is configured, recording trades in the ledger only")
		}
	}
	a.TradeExecutor = trading.NewExecutor(a.PriceResolver, a.PortfolioService, a.TradeLedger, logger, opts...)

	a.Notifier = notify.NewService(clients.WhatsApp, config.Clients.Twilio.RecipientPhone, config.Clients.Twilio.Timezone, logger)
	a.ReportService = report.NewService(a.PortfolioService, logger)
	a.ThreadStore = thread.NewStore(config.MarketConfig(a.Market).ThreadDir, logger)
}

// NewAgent builds the trading agent for the active market.
func (a *App) NewAgent() (*agent.Agent, error) {
	if a.Clients.Gemini == nil {
		return nil, fmt.Errorf("gemini client not configured: set GEMINI_API_KEY")
	}

	mc := a.Config.MarketConfig(a.Market)
	tools := &agent.Tools{
		Market:    a.Market,
		Search:    a.Clients.Gemini,
		Prices:    a.PriceResolver,
		Portfolio: a.PortfolioService,
		Trading:   a.TradeExecutor,
		Logger:    a.Logger,
	}

	client := a.Clients.Gemini
	sessions := func(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content) (agent.Session, error) {
		chat, err := client.NewChat(ctx, config, history)
		if err != nil {
			return nil, err
		}
		return chat, nil
	}

	return agent.New(agent.Config{
		Market:     a.Market,
		Name:       mc.Name,
		PromptFile: mc.PromptFile,
		MaxTurns:   a.Config.Agent.MaxTurns,
		Notify:     a.Config.Agent.Notify,
	}, sessions, tools, a.ThreadStore, a.Notifier, a.Logger), nil
}

// RunOnce performs one full trading session followed by the report
// artifacts. Report failures are logged and do not fail the run.
func (a *App) RunOnce(ctx context.Context) (*agent.RunResult, error) {
	ag, err := a.NewAgent()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := ag.Run(ctx)
	if err != nil {
		return result, fmt.Errorf("%s agent run failed: %w", a.Market, err)
	}

	a.WriteReports(ctx)

	a.Logger.Info().
		Str("market", a.Market.String()).
		Dur("elapsed", time.Since(start)).
		Msg("Trading session complete")
	return result, nil
}

// WriteReports refreshes the run artifacts for the active market.
func (a *App) WriteReports(ctx context.Context) {
	if err := a.ReportService.WriteCashChart(ctx, a.Market, a.Config.Report.ChartFile(a.Market)); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to write cash chart")
	}
}

// Close releases all resources held by the App.
// Shutdown order: close the ledger connection, then the log file.
func (a *App) Close() {
	if a.Ledger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Ledger.Close(ctx)
		a.Ledger = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}
