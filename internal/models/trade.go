package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the direction of a trade.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// Valid reports whether t is buy or sell.
func (t TradeType) Valid() bool {
	return t == TradeTypeBuy || t == TradeTypeSell
}

// Trade is an executed, immutable ledger record.
type Trade struct {
	ID        string          `json:"id,omitempty"`
	Code      string          `json:"code"`
	BrokerID  string          `json:"broker_id,omitempty"`
	Type      TradeType       `json:"type"`
	Ticker    string          `json:"ticker"`
	Shares    float64         `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Market    Market          `json:"market"`
	CreatedAt time.Time       `json:"created_at"`
}

// TradeInput is the payload appended to the ledger after an execution.
type TradeInput struct {
	Code     string          `json:"code"`
	BrokerID string          `json:"broker_id,omitempty"`
	Type     TradeType       `json:"type"`
	Ticker   string          `json:"ticker"`
	Shares   float64         `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Market   Market          `json:"market"`
}

// BalanceRecord is an append-only cash balance row keyed by the trade that
// produced it. The newest row per market is the current balance.
type BalanceRecord struct {
	ID        string          `json:"id,omitempty"`
	TradeCode string          `json:"trade_code"`
	Balance   decimal.Decimal `json:"balance"`
	Market    Market          `json:"market"`
	CreatedAt time.Time       `json:"created_at"`
}
