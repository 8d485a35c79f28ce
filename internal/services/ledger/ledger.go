// Package ledger validates and records trades and cash balance rows in the
// remote append-only store
package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 100

// Compile-time interface check
var _ interfaces.TradeLedger = (*Ledger)(nil)

// Ledger implements TradeLedger
type Ledger struct {
	trades   interfaces.TradeStore
	balances interfaces.BalanceStore
	logger   *common.Logger
}

// NewLedger creates a ledger over the remote trade and balance tables
func NewLedger(trades interfaces.TradeStore, balances interfaces.BalanceStore, logger *common.Logger) *Ledger {
	return &Ledger{
		trades:   trades,
		balances: balances,
		logger:   logger,
	}
}

// validateTradeInput rejects records the ledger must never hold.
func validateTradeInput(in models.TradeInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("invalid type %q; must be buy or sell", in.Type)
	}
	if strings.TrimSpace(in.Ticker) == "" {
		return fmt.Errorf("ticker is required")
	}
	if !in.Market.Valid() {
		return fmt.Errorf("invalid market %q", in.Market)
	}
	if math.IsNaN(in.Shares) || math.IsInf(in.Shares, 0) || in.Shares <= 0 {
		return fmt.Errorf("shares must be a positive number, got %v", in.Shares)
	}
	if in.Market.WholeSharesOnly() && in.Shares != math.Trunc(in.Shares) {
		return fmt.Errorf("shares must be a whole number for %s, got %v", in.Market, in.Shares)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", in.Price)
	}
	if !in.Total.IsPositive() {
		return fmt.Errorf("total must be positive, got %s", in.Total)
	}
	expected := common.RoundMoney(decimal.NewFromFloat(in.Shares).Mul(in.Price))
	if !common.RoundMoney(in.Total).Equal(expected) {
		return fmt.Errorf("total %s does not match shares x price %s", in.Total, expected)
	}
	return nil
}

// Append validates and records an executed trade, returning its record id
func (l *Ledger) Append(ctx context.Context, input models.TradeInput) (string, error) {
	input.Ticker = strings.TrimSpace(input.Ticker)
	if err := validateTradeInput(input); err != nil {
		l.logger.Warn().Err(err).Str("code", input.Code).Str("ticker", input.Ticker).Msg("Trade rejected by ledger validation")
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	trade := &models.Trade{
		Code:     input.Code,
		BrokerID: input.BrokerID,
		Type:     input.Type,
		Ticker:   input.Ticker,
		Shares:   input.Shares,
		Price:    input.Price,
		Total:    common.RoundMoney(input.Total),
		Market:   input.Market,
	}

	id, err := l.trades.Append(ctx, trade)
	if err != nil {
		l.logger.Error().Err(err).Str("code", input.Code).Str("ticker", input.Ticker).Msg("Failed to append trade")
		return "", fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	l.logger.Info().
		Str("id", id).
		Str("code", trade.Code).
		Str("type", string(trade.Type)).
		Str("ticker", trade.Ticker).
		Float64("shares", trade.Shares).
		Str("total", trade.Total.String()).
		Str("market", trade.Market.String()).
		Msg("Trade recorded")
	return id, nil
}

// List returns up to limit trades for a market, most recent first
func (l *Ledger) List(ctx context.Context, market models.Market, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	trades, err := l.trades.List(ctx, market, limit)
	if err != nil {
		l.logger.Error().Err(err).Str("market", market.String()).Msg("Failed to list trades")
		return nil, fmt.Errorf("%w: %v", common.ErrLedgerRead, err)
	}

	for i := range trades {
		if err := validateStoredTrade(trades[i]); err != nil {
			l.logger.Error().Err(err).Str("market", market.String()).Str("id", trades[i].ID).Msg("Unusable trade row")
			return nil, fmt.Errorf("%w: row %s: %v", common.ErrLedgerRead, trades[i].ID, err)
		}
	}

	l.logger.Info().Str("market", market.String()).Int("count", len(trades)).Int("limit", limit).Msg("Trades listed")
	return trades, nil
}

// validateStoredTrade checks a row read back from the store. Totals are not
// recomputed since history predates the current rounding rules.
func validateStoredTrade(t models.Trade) error {
	switch {
	case strings.TrimSpace(t.Code) == "":
		return fmt.Errorf("missing code")
	case !t.Type.Valid():
		return fmt.Errorf("unknown type %q", t.Type)
	case strings.TrimSpace(t.Ticker) == "":
		return fmt.Errorf("missing ticker")
	case t.Shares <= 0 || math.IsNaN(t.Shares) || math.IsInf(t.Shares, 0):
		return fmt.Errorf("non-positive shares %v", t.Shares)
	case !t.Price.IsPositive():
		return fmt.Errorf("non-positive price %s", t.Price)
	case !t.Total.IsPositive():
		return fmt.Errorf("non-positive total %s", t.Total)
	}
	return nil
}

// AppendBalance records the cash balance left by a trade
func (l *Ledger) AppendBalance(ctx context.Context, record models.BalanceRecord) (string, error) {
	if strings.TrimSpace(record.TradeCode) == "" {
		return "", fmt.Errorf("%w: trade code is required", common.ErrValidation)
	}
	if record.Balance.IsNegative() {
		return "", fmt.Errorf("%w: balance must not be negative, got %s", common.ErrValidation, record.Balance)
	}
	if !record.Market.Valid() {
		return "", fmt.Errorf("%w: invalid market %q", common.ErrValidation, record.Market)
	}
	record.Balance = common.RoundMoney(record.Balance)

	id, err := l.balances.Append(ctx, &record)
	if err != nil {
		l.logger.Error().Err(err).Str("trade_code", record.TradeCode).Msg("Failed to append balance")
		return "", fmt.Errorf("%w: %v", common.ErrLedgerWrite, err)
	}

	l.logger.Info().
		Str("id", id).
		Str("trade_code", record.TradeCode).
		Str("balance", record.Balance.String()).
		Str("market", record.Market.String()).
		Msg("Balance recorded")
	return id, nil
}
