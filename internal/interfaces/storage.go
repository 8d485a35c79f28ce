package interfaces

import (
	"context"

	"github.com/bobmcallan/iacob/internal/models"
)

// HoldingsStore persists the local per-market portfolio snapshot
type HoldingsStore interface {
	// Load returns the snapshot for a market. A missing snapshot yields an
	// empty portfolio; an unreadable one is an error.
	Load(ctx context.Context, market models.Market) (*models.Portfolio, error)

	// Save writes the whole snapshot, replacing the previous one
	Save(ctx context.Context, portfolio *models.Portfolio) error
}

// TradeStore is the remote append-only trade table
type TradeStore interface {
	Append(ctx context.Context, trade *models.Trade) (string, error)

	// List returns up to limit trades for a market, newest first
	List(ctx context.Context, market models.Market, limit int) ([]models.Trade, error)
}

// BalanceStore is the remote append-only cash balance table
type BalanceStore interface {
	Append(ctx context.Context, record *models.BalanceRecord) (string, error)

	// Latest returns the newest balance row for a market, nil when none exist
	Latest(ctx context.Context, market models.Market) (*models.BalanceRecord, error)
}
