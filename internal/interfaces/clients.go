// Package interfaces defines service contracts for Iacob
package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/models"
)

// BrokerClient provides access to the remote broker API
type BrokerClient interface {
	// PlaceTrade submits a market order at the quoted price
	PlaceTrade(ctx context.Context, req *models.BrokerTradeRequest) (*models.BrokerTradeResponse, error)

	// GetBalance returns the account cash balance
	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// GetPrice returns the broker's quote for a ticker
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// AlphaVantageClient provides structured quotes from AlphaVantage
type AlphaVantageClient interface {
	GetStockQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// YahooClient provides quotes from Yahoo Finance
type YahooClient interface {
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// GeminiClient provides search-grounded generation from Google Gemini
type GeminiClient interface {
	// SearchPrice asks the model to look up a live price and answer with a
	// schema-constrained {"price": number}
	SearchPrice(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error)

	// WebSearch answers a free-form query using Google Search grounding
	WebSearch(ctx context.Context, query string) (string, error)
}

// WhatsAppClient delivers WhatsApp messages
type WhatsAppClient interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}
