// Package portfolio composes the per-market portfolio and values it
package portfolio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
	"github.com/bobmcallan/iacob/internal/services/ledger"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// DefaultConcurrency bounds parallel price lookups during valuation.
const DefaultConcurrency = 4

// Service implements PortfolioService
type Service struct {
	holdings     interfaces.HoldingsStore
	balance      interfaces.BalanceSource
	ledger       interfaces.TradeLedger
	prices       interfaces.PriceResolver
	logger       *common.Logger
	now          func() time.Time
	historyLimit int
	concurrency  int
}

// Option configures a Service
type Option func(*Service)

// WithHistoryLimit sets how many ledger trades are loaded into History.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithConcurrency sets how many tickers are priced at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source used for annualized returns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new portfolio service
func NewService(
	holdings interfaces.HoldingsStore,
	balance interfaces.BalanceSource,
	tradeLedger interfaces.TradeLedger,
	prices interfaces.PriceResolver,
	logger *common.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		holdings:     holdings,
		balance:      balance,
		ledger:       tradeLedger,
		prices:       prices,
		logger:       logger,
		now:          time.Now,
		historyLimit: ledger.DefaultListLimit,
		concurrency:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPortfolio composes the portfolio: holdings from the local snapshot, cash
// from the balance source and history from the ledger. Any failed read fails
// the whole call.
func (s *Service) GetPortfolio(ctx context.Context, market models.Market) (*models.Portfolio, error) {
	portfolio, err := s.holdings.Load(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	portfolio.Market = market

	cash, err := s.balance.GetCurrentBalance(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("failed to read cash balance: %w", err)
	}
	portfolio.Cash = cash

	history, err := s.ledger.List(ctx, market, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade history: %w", err)
	}
	portfolio.History = history

	s.logger.Info().
		Str("market", market.String()).
		Str("cash", cash.String()).
		Int("positions", len(portfolio.Positions())).
		Int("trades", len(history)).
		Msg("Portfolio composed")
	return portfolio, nil
}

// SavePortfolio writes the holdings snapshot. Cash and history are owned by
// the remote side and are not authoritative locally.
func (s *Service) SavePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	if err := s.holdings.Save(ctx, portfolio); err != nil {
		return fmt.Errorf("failed to save holdings: %w", err)
	}
	return nil
}

// valueHoldings prices every positive position. A ticker that cannot be
// priced is logged and returned with Priced=false and a zero value.
func (s *Service) valueHoldings(ctx context.Context, portfolio *models.Portfolio) []models.HoldingValuation {
	tickers := portfolio.Positions()
	out := make([]models.HoldingValuation, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ticker := range tickers {
		shares := portfolio.Holdings[ticker]
		out[i] = models.HoldingValuation{Ticker: ticker, Shares: shares}
		g.Go(func() error {
			price, err := s.prices.ResolvePrice(gctx, ticker, portfolio.Market)
			if err != nil {
				s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to get price, valuing holding at 0")
				return nil
			}
			out[i].Price = price
			out[i].Value = decimal.NewFromFloat(shares).Mul(price)
			out[i].Priced = true
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func sumValues(holdings []models.HoldingValuation) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value)
	}
	return total
}

// CalculateNetWorth returns round(cash + sum(shares x price), 2)
func (s *Service) CalculateNetWorth(ctx context.Context, market models.Market) (decimal.Decimal, error) {
	portfolio, err := s.GetPortfolio(ctx, market)
	if err != nil {
		return decimal.Zero, err
	}

	netWorth := common.RoundMoney(portfolio.Cash.Add(sumValues(s.valueHoldings(ctx, portfolio))))
	s.logger.Info().Str("market", market.String()).Str("net_worth", netWorth.String()).Msg("Net worth calculated")
	return netWorth, nil
}

// CalculateAnnualizedReturn returns the compound annual growth rate against
// the initial investment, as a percentage with two decimals. It is "0.00"
// before the first trade and "N/A" less than a day after it.
func (s *Service) CalculateAnnualizedReturn(ctx context.Context, portfolio *models.Portfolio) (string, error) {
	if portfolio == nil || len(portfolio.History) == 0 {
		return "0.00", nil
	}
	value := portfolio.Cash.Add(sumValues(s.valueHoldings(ctx, portfolio)))
	return s.annualizedReturn(portfolio.History, value), nil
}

func (s *Service) annualizedReturn(history []models.Trade, value decimal.Decimal) string {
	if len(history) == 0 {
		return "0.00"
	}

	first := history[0].CreatedAt
	for _, t := range history[1:] {
		if t.CreatedAt.Before(first) {
			first = t.CreatedAt
		}
	}

	days := s.now().Sub(first).Hours() / 24
	s.logger.Debug().Float64("days", days).Str("value", value.String()).Msg("Days since first trade")
	if days < 1 {
		return "N/A"
	}

	ratio := value.Div(models.InitialInvestment).InexactFloat64()
	if ratio <= 0 {
		return common.FormatAmount(decimal.NewFromInt(-100))
	}
	cagr := (math.Pow(ratio, 365/days) - 1) * 100
	if math.IsInf(cagr, 0) || math.IsNaN(cagr) {
		return "N/A"
	}
	return common.FormatAmount(decimal.NewFromFloat(cagr))
}

// CalculatePortfolioValue breaks the portfolio down by holding. Each holding
// value is rounded to cents and unpriced holdings count as 0.
func (s *Service) CalculatePortfolioValue(ctx context.Context, market models.Market) (*models.PortfolioValuation, error) {
	portfolio, err := s.GetPortfolio(ctx, market)
	if err != nil {
		return nil, err
	}

	holdings := s.valueHoldings(ctx, portfolio)
	for i := range holdings {
		holdings[i].Value = common.RoundMoney(holdings[i].Value)
	}

	return &models.PortfolioValuation{
		Market:     market,
		Cash:       portfolio.Cash,
		Holdings:   holdings,
		TotalValue: common.RoundMoney(portfolio.Cash.Add(sumValues(holdings))),
	}, nil
}

// NetWorthSummary composes and values the portfolio once and derives the
// headline figures from that single valuation.
func (s *Service) NetWorthSummary(ctx context.Context, market models.Market) (*models.NetWorthSummary, error) {
	portfolio, err := s.GetPortfolio(ctx, market)
	if err != nil {
		return nil, err
	}

	holdingsValue := sumValues(s.valueHoldings(ctx, portfolio))
	netWorth := common.RoundMoney(portfolio.Cash.Add(holdingsValue))

	summary := &models.NetWorthSummary{
		Market:           market,
		NetWorth:         netWorth,
		Cash:             portfolio.Cash,
		HoldingsValue:    common.RoundMoney(netWorth.Sub(portfolio.Cash)),
		AnnualizedReturn: s.annualizedReturn(portfolio.History, portfolio.Cash.Add(holdingsValue)),
		Change:           netWorth.Sub(models.InitialInvestment),
	}

	s.logger.Info().
		Str("market", market.String()).
		Str("net_worth", summary.NetWorth.String()).
		Str("annualized_return", summary.AnnualizedReturn).
		Msg("Net worth summary")
	return summary, nil
}
