// Package trading validates, authorizes, executes and records buy and sell
// requests
package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// Compile-time interface check
var _ interfaces.TradeExecutor = (*Executor)(nil)

// Executor implements TradeExecutor
type Executor struct {
	mode      string
	broker    interfaces.BrokerClient
	prices    interfaces.PriceResolver
	portfolio interfaces.PortfolioService
	ledger    interfaces.TradeLedger
	logger    *common.Logger
	newCode   func() string
}

// Option configures an Executor
type Option func(*Executor)

// WithBroker routes executions through the broker. Without it the executor
// runs in ledger mode.
func WithBroker(broker interfaces.BrokerClient) Option {
	return func(e *Executor) {
		if broker != nil {
			e.broker = broker
			e.mode = common.TradingModeBroker
		}
	}
}

// WithCodeGenerator overrides how trade codes are generated.
func WithCodeGenerator(fn func() string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.newCode = fn
		}
	}
}

// NewExecutor creates a trade executor
func NewExecutor(
	prices interfaces.PriceResolver,
	portfolio interfaces.PortfolioService,
	ledger interfaces.TradeLedger,
	logger *common.Logger,
	opts ...Option,
) *Executor {
	e := &Executor{
		mode:      common.TradingModeLedger,
		prices:    prices,
		portfolio: portfolio,
		ledger:    ledger,
		logger:    logger,
		newCode:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns "broker" or "ledger".
func (e *Executor) Mode() string {
	return e.mode
}

// Buy purchases shares of ticker at the resolved market price
func (e *Executor) Buy(ctx context.Context, market models.Market, ticker string, shares float64) (*models.TradeResult, error) {
	return e.Execute(ctx, models.TradeRequest{Market: market, Type: models.TradeTypeBuy, Ticker: ticker, Shares: shares})
}

// Sell disposes of shares of ticker at the resolved market price
func (e *Executor) Sell(ctx context.Context, market models.Market, ticker string, shares float64) (*models.TradeResult, error) {
	return e.Execute(ctx, models.TradeRequest{Market: market, Type: models.TradeTypeSell, Ticker: ticker, Shares: shares})
}

func validateRequest(req models.TradeRequest) error {
	if !req.Market.Valid() {
		return fmt.Errorf("unknown market %q", req.Market)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("unknown trade type %q", req.Type)
	}
	if req.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if math.IsNaN(req.Shares) || math.IsInf(req.Shares, 0) || req.Shares <= 0 {
		return fmt.Errorf("shares must be a positive number, got %v", req.Shares)
	}
	if req.Market.WholeSharesOnly() && req.Shares != math.Trunc(req.Shares) {
		return fmt.Errorf("shares must be a whole number for %s, got %v", req.Market, req.Shares)
	}
	return nil
}

// Execute runs a trade request to completion. Declines and broker rejections
// are reported in the result; the error return is reserved for failed reads
// (price, balance, holdings, history) that prevent a decision.
func (e *Executor) Execute(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	req.Ticker = strings.TrimSpace(req.Ticker)
	result := &models.TradeResult{Type: req.Type, Ticker: req.Ticker, Shares: req.Shares}

	if err := validateRequest(req); err != nil {
		e.logger.Warn().Err(err).Str("ticker", req.Ticker).Float64("shares", req.Shares).Msg("Trade request rejected")
		return decline(result, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err),
			fmt.Sprintf("Invalid %s request for %s: %v.", req.Type, displayTicker(req.Ticker), err)), nil
	}

	price, err := e.prices.ResolvePrice(ctx, req.Ticker, req.Market)
	if err != nil {
		return nil, err
	}
	result.Price = price

	portfolio, err := e.portfolio.GetPortfolio(ctx, req.Market)
	if err != nil {
		return nil, err
	}
	result.Cash = portfolio.Cash
	result.Position = portfolio.Shares(req.Ticker)

	result.Total = common.RoundMoney(decimal.NewFromFloat(req.Shares).Mul(price))

	switch req.Type {
	case models.TradeTypeBuy:
		if portfolio.Cash.LessThan(result.Total) {
			e.logger.Info().
				Str("ticker", req.Ticker).
				Str("cash", portfolio.Cash.String()).
				Str("cost", result.Total.String()).
				Msg("Buy declined, insufficient cash")
			return decline(result, common.ErrInsufficientFunds, fmt.Sprintf(
				"You don't have enough cash to buy %s shares of %s. Your cash balance is $%s and the price is $%s per share.",
				common.FormatShares(req.Shares), req.Ticker, portfolio.Cash.StringFixed(2), price.String())), nil
		}
	case models.TradeTypeSell:
		if held := common.RoundShares(portfolio.Shares(req.Ticker)); held < common.RoundShares(req.Shares) {
			e.logger.Info().
				Str("ticker", req.Ticker).
				Float64("held", held).
				Float64("shares", req.Shares).
				Msg("Sell declined, insufficient shares")
			return decline(result, common.ErrInsufficientShares, fmt.Sprintf(
				"You don't have enough shares of %s to sell. You have %s shares.",
				req.Ticker, common.FormatShares(held))), nil
		}
	}

	if e.mode == common.TradingModeBroker {
		resp, err := e.broker.PlaceTrade(ctx, &models.BrokerTradeRequest{
			Ticker:   req.Ticker,
			Action:   req.Type,
			Quantity: req.Shares,
			Price:    price.InexactFloat64(),
		})
		if err != nil {
			e.logger.Error().Err(err).Str("ticker", req.Ticker).Str("type", string(req.Type)).Msg("Broker rejected trade")
			result.Outcome = models.TradeFailed
			result.Err = err
			result.Message = fmt.Sprintf("Failed to execute %s trade for %s. Error: %v", req.Type, req.Ticker, err)
			return result, nil
		}
		result.BrokerID = resp.ID
		e.logger.Info().Str("broker_id", resp.ID).Str("ticker", req.Ticker).Msg("Broker executed trade")
	}

	result.Outcome = models.TradeExecuted
	result.Code = e.newCode()
	if req.Type == models.TradeTypeBuy {
		result.Cash = common.RoundMoney(portfolio.Cash.Sub(result.Total))
	} else {
		result.Cash = common.RoundMoney(portfolio.Cash.Add(result.Total))
	}
	e.record(ctx, req, result)
	e.applyToPortfolio(ctx, portfolio, req, result)

	verb := "Purchased"
	if req.Type == models.TradeTypeSell {
		verb = "Sold"
	}
	result.Message = fmt.Sprintf("%s %s shares of %s at $%s per share, for a total of $%s. Your cash balance is now $%s.",
		verb, common.FormatShares(req.Shares), req.Ticker, price.String(), result.Total.StringFixed(2), result.Cash.StringFixed(2))
	if len(result.Warnings) > 0 {
		result.Message += " Warning: " + strings.Join(result.Warnings, "; ") + "."
	}

	e.logger.Info().
		Str("mode", e.mode).
		Str("code", result.Code).
		Str("type", string(req.Type)).
		Str("ticker", req.Ticker).
		Float64("shares", req.Shares).
		Str("price", price.String()).
		Str("total", result.Total.String()).
		Str("cash", result.Cash.String()).
		Msg("Trade executed")
	return result, nil
}

// record appends the trade and the resulting balance to the ledger. Failures
// are partial persistence and never undo an execution.
func (e *Executor) record(ctx context.Context, req models.TradeRequest, result *models.TradeResult) {
	_, err := e.ledger.Append(ctx, models.TradeInput{
		Code:     result.Code,
		BrokerID: result.BrokerID,
		Type:     req.Type,
		Ticker:   req.Ticker,
		Shares:   req.Shares,
		Price:    result.Price,
		Total:    result.Total,
		Market:   req.Market,
	})
	if err != nil {
		e.partial(result, "trade not recorded in ledger", err)
		return
	}

	if _, err := e.ledger.AppendBalance(ctx, models.BalanceRecord{
		TradeCode: result.Code,
		Balance:   result.Cash,
		Market:    req.Market,
	}); err != nil {
		e.partial(result, "balance not recorded in ledger", err)
	}
}

// applyToPortfolio updates holdings and cash and saves the snapshot with the
// history cleared.
func (e *Executor) applyToPortfolio(ctx context.Context, portfolio *models.Portfolio, req models.TradeRequest, result *models.TradeResult) {
	updated := portfolio.Clone()
	delta := req.Shares
	if req.Type == models.TradeTypeSell {
		delta = -delta
	}
	shares := common.AddShares(updated.Holdings[req.Ticker], delta)
	if shares > 0 {
		updated.Holdings[req.Ticker] = shares
	} else {
		delete(updated.Holdings, req.Ticker)
		shares = 0
	}
	updated.Cash = result.Cash
	updated.History = []models.Trade{}
	result.Position = shares

	if err := e.portfolio.SavePortfolio(ctx, updated); err != nil {
		e.partial(result, "holdings snapshot not saved", err)
	}
}

func (e *Executor) partial(result *models.TradeResult, what string, err error) {
	e.logger.Error().
		Err(errors.Join(common.ErrPartialPersistence, err)).
		Str("code", result.Code).
		Str("ticker", result.Ticker).
		Msg("Partial persistence failure: " + what)
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s (%v)", common.ErrPartialPersistence, what, err))
}

func decline(result *models.TradeResult, err error, message string) *models.TradeResult {
	result.Outcome = models.TradeDeclined
	result.Err = err
	result.Message = message
	return result
}

func displayTicker(ticker string) string {
	if ticker == "" {
		return "<empty ticker>"
	}
	return ticker
}
