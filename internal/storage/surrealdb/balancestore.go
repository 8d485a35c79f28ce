package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

const balanceSelectFields = "balance_id as id, trade_code, balance, market, created_at"

type balanceRecord struct {
	ID        string    `json:"id,omitempty"`
	TradeCode string    `json:"trade_code"`
	Balance   float64   `json:"balance"`
	Market    string    `json:"market"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceStore implements interfaces.BalanceStore using SurrealDB.
type BalanceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(db *surrealdb.DB, logger *common.Logger) *BalanceStore {
	return &BalanceStore{db: db, logger: logger, now: time.Now}
}

// Append writes a new balance row.
func (s *BalanceStore) Append(ctx context.Context, record *models.BalanceRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	sql := `CREATE $rid SET
		balance_id = $balance_id, trade_code = $trade_code, balance = $balance,
		market = $market, created_at = $created_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID(balancesTable, record.ID),
		"balance_id": record.ID,
		"trade_code": record.TradeCode,
		"balance":    record.Balance.InexactFloat64(),
		"market":     record.Market.Label(),
		"created_at": record.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return "", fmt.Errorf("failed to create balance record: %w", err)
	}
	return record.ID, nil
}

// Latest returns the newest balance row for a market, or nil if none exist.
func (s *BalanceStore) Latest(ctx context.Context, market models.Market) (*models.BalanceRecord, error) {
	sql := "SELECT " + balanceSelectFields + " FROM " + balancesTable + " WHERE market = $market ORDER BY created_at DESC LIMIT 1"
	vars := map[string]any{"market": market.Label()}

	results, err := surrealdb.Query[[]balanceRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest balance: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}

	r := (*results)[0].Result[0]
	return &models.BalanceRecord{
		ID:        r.ID,
		TradeCode: r.TradeCode,
		Balance:   decimal.NewFromFloat(r.Balance),
		Market:    market,
		CreatedAt: r.CreatedAt,
	}, nil
}

// Ensure BalanceStore implements interfaces.BalanceStore
var _ interfaces.BalanceStore = (*BalanceStore)(nil)
