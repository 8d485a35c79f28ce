// Package surrealdb implements the remote trade ledger on SurrealDB
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/iacob/internal/common"
)

const (
	tradesTable   = "trades"
	balancesTable = "balances"
)

// Manager owns the SurrealDB connection and the ledger stores.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	tradeStore   *TradeStore
	balanceStore *BalanceStore
}

// NewManager connects to SurrealDB and prepares the ledger tables.
func NewManager(ctx context.Context, logger *common.Logger, config common.SurrealDBConfig) (*Manager, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineSchema(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	m := newManager(db, logger)

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB ledger initialized")

	return m, nil
}

func newManager(db *surrealdb.DB, logger *common.Logger) *Manager {
	return &Manager{
		db:           db,
		logger:       logger,
		tradeStore:   NewTradeStore(db, logger),
		balanceStore: NewBalanceStore(db, logger),
	}
}

// defineSchema creates the ledger tables and their market/time indexes.
// SurrealDB v3 errors on querying tables that were never defined.
func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	statements := []string{
		"DEFINE TABLE IF NOT EXISTS " + tradesTable + " SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS " + balancesTable + " SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS trades_market_created ON " + tradesTable + " FIELDS market, created_at",
		"DEFINE INDEX IF NOT EXISTS trades_code ON " + tradesTable + " FIELDS code UNIQUE",
		"DEFINE INDEX IF NOT EXISTS balances_market_created ON " + balancesTable + " FIELDS market, created_at",
	}
	for _, sql := range statements {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to apply %q: %w", sql, err)
		}
	}
	return nil
}

// TradeStore returns the trades table store.
func (m *Manager) TradeStore() *TradeStore {
	return m.tradeStore
}

// BalanceStore returns the balances table store.
func (m *Manager) BalanceStore() *BalanceStore {
	return m.balanceStore
}

// Close closes the SurrealDB connection.
func (m *Manager) Close(ctx context.Context) error {
	m.db.Close(ctx)
	return nil
}
