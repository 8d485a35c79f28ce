// Package balance provides the authoritative cash balance for a market
package balance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// BrokerSource reads cash from the broker's balance endpoint.
type BrokerSource struct {
	broker interfaces.BrokerClient
	logger *common.Logger
}

// NewBrokerSource creates a broker-backed balance source.
func NewBrokerSource(broker interfaces.BrokerClient, logger *common.Logger) *BrokerSource {
	return &BrokerSource{broker: broker, logger: logger}
}

// GetCurrentBalance returns the broker's cash balance. The broker account is
// not market-scoped, so every market sees the same balance.
func (s *BrokerSource) GetCurrentBalance(ctx context.Context, market models.Market) (decimal.Decimal, error) {
	cash, err := s.broker.GetBalance(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("market", market.String()).Msg("Broker balance unavailable")
		return decimal.Zero, fmt.Errorf("%w: %v", common.ErrBalanceUnavailable, err)
	}

	s.logger.Info().Str("market", market.String()).Str("cash", cash.String()).Msg("Balance read from broker")
	return cash, nil
}

// LedgerSource reads cash from the newest balance row for the market.
type LedgerSource struct {
	store   interfaces.BalanceStore
	opening decimal.Decimal
	logger  *common.Logger
}

// NewLedgerSource creates a ledger-backed balance source. opening is the
// balance reported for a market that has no rows yet.
func NewLedgerSource(store interfaces.BalanceStore, opening decimal.Decimal, logger *common.Logger) *LedgerSource {
	return &LedgerSource{store: store, opening: opening, logger: logger}
}

// GetCurrentBalance returns the latest recorded balance, or the opening
// balance before the first trade. Read failures are errors.
func (s *LedgerSource) GetCurrentBalance(ctx context.Context, market models.Market) (decimal.Decimal, error) {
	record, err := s.store.Latest(ctx, market)
	if err != nil {
		s.logger.Error().Err(err).Str("market", market.String()).Msg("Ledger balance unavailable")
		return decimal.Zero, fmt.Errorf("%w: %v", common.ErrBalanceUnavailable, err)
	}
	if record == nil {
		s.logger.Info().Str("market", market.String()).Str("cash", s.opening.String()).Msg("No balance recorded, using opening balance")
		return s.opening, nil
	}

	s.logger.Info().
		Str("market", market.String()).
		Str("cash", record.Balance.String()).
		Str("trade_code", record.TradeCode).
		Msg("Balance read from ledger")
	return record.Balance, nil
}

var (
	_ interfaces.BalanceSource = (*BrokerSource)(nil)
	_ interfaces.BalanceSource = (*LedgerSource)(nil)
)
