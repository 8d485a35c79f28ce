package models

import (
	"github.com/shopspring/decimal"
)

// TradeRequest asks the executor to buy or sell a quantity of a ticker.
type TradeRequest struct {
	Market Market    `json:"market"`
	Type   TradeType `json:"type"`
	Ticker string    `json:"ticker"`
	Shares float64   `json:"shares"`
}

// TradeOutcome is the terminal state of a trade request.
type TradeOutcome string

const (
	// TradeExecuted means the trade happened. Secondary writes may still
	// have failed, see TradeResult.Warnings.
	TradeExecuted TradeOutcome = "executed"
	// TradeDeclined means validation or authorization refused the request
	// before anything was mutated.
	TradeDeclined TradeOutcome = "declined"
	// TradeFailed means the broker rejected the order. Nothing was mutated.
	TradeFailed TradeOutcome = "failed"
)

// TradeResult reports what happened to a trade request.
type TradeResult struct {
	Outcome  TradeOutcome    `json:"outcome"`
	Type     TradeType       `json:"type"`
	Ticker   string          `json:"ticker"`
	Shares   float64         `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Cash     decimal.Decimal `json:"cash"`
	Position float64         `json:"position"`
	Code     string          `json:"code,omitempty"`
	BrokerID string          `json:"broker_id,omitempty"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings,omitempty"`
	// Err classifies declines and failures (ErrInsufficientFunds etc).
	Err error `json:"-"`
}

// Executed reports whether the trade went through.
func (r *TradeResult) Executed() bool {
	return r != nil && r.Outcome == TradeExecuted
}
