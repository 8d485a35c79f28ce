package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// tradeSelectFields aliases the stored code to id for struct mapping.
const tradeSelectFields = "code as id, code, broker_id, type, ticker, shares, price, total, market, created_at"

// tradeRecord is the stored row. Amounts are floats because decimals do not
// survive the CBOR round trip; they are converted at the store boundary.
type tradeRecord struct {
	ID        string    `json:"id,omitempty"`
	Code      string    `json:"code"`
	BrokerID  string    `json:"broker_id,omitempty"`
	Type      string    `json:"type"`
	Ticker    string    `json:"ticker"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	Market    string    `json:"market"`
	CreatedAt time.Time `json:"created_at"`
}

func (r tradeRecord) toModel() (models.Trade, error) {
	market, err := models.ParseMarket(r.Market)
	if err != nil {
		return models.Trade{}, err
	}
	return models.Trade{
		ID:        r.ID,
		Code:      r.Code,
		BrokerID:  r.BrokerID,
		Type:      models.TradeType(strings.ToLower(r.Type)),
		Ticker:    r.Ticker,
		Shares:    r.Shares,
		Price:     decimal.NewFromFloat(r.Price),
		Total:     decimal.NewFromFloat(r.Total),
		Market:    market,
		CreatedAt: r.CreatedAt,
	}, nil
}

// TradeStore implements interfaces.TradeStore using SurrealDB.
type TradeStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *surrealdb.DB, logger *common.Logger) *TradeStore {
	return &TradeStore{db: db, logger: logger, now: time.Now}
}

// Append creates the trade row keyed by its code. CREATE fails on an
// existing record, so a trade can never be overwritten.
func (s *TradeStore) Append(ctx context.Context, trade *models.Trade) (string, error) {
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = s.now().UTC()
	}

	sql := `CREATE $rid SET
		code = $code, broker_id = $broker_id, type = $type, ticker = $ticker, shares = $shares,
		price = $price, total = $total, market = $market, created_at = $created_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID(tradesTable, trade.Code),
		"code":       trade.Code,
		"broker_id":  trade.BrokerID,
		"type":       string(trade.Type),
		"ticker":     trade.Ticker,
		"shares":     trade.Shares,
		"price":      trade.Price.InexactFloat64(),
		"total":      trade.Total.InexactFloat64(),
		"market":     trade.Market.Label(),
		"created_at": trade.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return "", fmt.Errorf("failed to create trade %s: %w", trade.Code, err)
	}

	trade.ID = trade.Code
	return trade.Code, nil
}

// List returns up to limit trades for a market, newest first.
func (s *TradeStore) List(ctx context.Context, market models.Market, limit int) ([]models.Trade, error) {
	sql := "SELECT " + tradeSelectFields + " FROM " + tradesTable + " WHERE market = $market ORDER BY created_at DESC LIMIT $limit"
	vars := map[string]any{
		"market": market.Label(),
		"limit":  limit,
	}

	results, err := surrealdb.Query[[]tradeRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Trade{}, nil
	}

	rows := (*results)[0].Result
	trades := make([]models.Trade, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", r.Code, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// Ensure TradeStore implements interfaces.TradeStore
var _ interfaces.TradeStore = (*TradeStore)(nil)
