package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/models"
)

// PriceSource is one strategy in a price fallback chain
type PriceSource interface {
	Name() string
	Price(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error)
}

// PriceResolver returns a positive price for a ticker or ErrPriceUnavailable
type PriceResolver interface {
	ResolvePrice(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error)
}

// BalanceSource returns the authoritative cash balance for a market
type BalanceSource interface {
	GetCurrentBalance(ctx context.Context, market models.Market) (decimal.Decimal, error)
}

// TradeLedger validates and records trades and balance rows
type TradeLedger interface {
	Append(ctx context.Context, input models.TradeInput) (string, error)
	List(ctx context.Context, market models.Market, limit int) ([]models.Trade, error)
	AppendBalance(ctx context.Context, record models.BalanceRecord) (string, error)
}

// PortfolioService composes and values portfolios
type PortfolioService interface {
	GetPortfolio(ctx context.Context, market models.Market) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, portfolio *models.Portfolio) error
	CalculateNetWorth(ctx context.Context, market models.Market) (decimal.Decimal, error)
	CalculateAnnualizedReturn(ctx context.Context, portfolio *models.Portfolio) (string, error)
	CalculatePortfolioValue(ctx context.Context, market models.Market) (*models.PortfolioValuation, error)
	NetWorthSummary(ctx context.Context, market models.Market) (*models.NetWorthSummary, error)
}

// TradeExecutor validates, authorizes, executes and records trades
type TradeExecutor interface {
	Buy(ctx context.Context, market models.Market, ticker string, shares float64) (*models.TradeResult, error)
	Sell(ctx context.Context, market models.Market, ticker string, shares float64) (*models.TradeResult, error)
	Execute(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error)
}

// Notifier delivers the end-of-run report
type Notifier interface {
	SendReport(ctx context.Context, report string) bool
}
