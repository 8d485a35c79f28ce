package price

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// Each constructor returns a nil PriceSource when its client is not
// configured, which WithChain drops.

type brokerSource struct {
	client interfaces.BrokerClient
}

// NewBrokerSource prices through the broker's quote endpoint.
func NewBrokerSource(client interfaces.BrokerClient) interfaces.PriceSource {
	if client == nil {
		return nil
	}
	return &brokerSource{client: client}
}

func (s *brokerSource) Name() string { return "broker" }

func (s *brokerSource) Price(ctx context.Context, ticker string, _ models.Market) (decimal.Decimal, error) {
	return s.client.GetPrice(ctx, ticker)
}

type alphaVantageSource struct {
	client interfaces.AlphaVantageClient
	quote  string // quote currency for crypto pairs
}

// NewAlphaVantageSource prices stocks with GLOBAL_QUOTE and crypto with
// CURRENCY_EXCHANGE_RATE against USD.
func NewAlphaVantageSource(client interfaces.AlphaVantageClient) interfaces.PriceSource {
	if client == nil {
		return nil
	}
	return &alphaVantageSource{client: client, quote: "USD"}
}

func (s *alphaVantageSource) Name() string { return "alphavantage" }

func (s *alphaVantageSource) Price(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error) {
	if market == models.MarketCrypto {
		return s.client.GetExchangeRate(ctx, ticker, s.quote)
	}
	return s.client.GetStockQuote(ctx, ticker)
}

type yahooSource struct {
	client interfaces.YahooClient
}

// NewYahooSource prices through Yahoo Finance. Crypto tickers are quoted as
// the <TICKER>-USD pair.
func NewYahooSource(client interfaces.YahooClient) interfaces.PriceSource {
	if client == nil {
		return nil
	}
	return &yahooSource{client: client}
}

func (s *yahooSource) Name() string { return "yahoo" }

func (s *yahooSource) Price(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error) {
	if market == models.MarketCrypto {
		return s.client.GetCurrentPrice(ctx, fmt.Sprintf("%s-USD", ticker))
	}
	return s.client.GetCurrentPrice(ctx, ticker)
}

type aiSource struct {
	client interfaces.GeminiClient
}

// NewAISource asks the model to search for the price and answer in a
// {"price": number} schema.
func NewAISource(client interfaces.GeminiClient) interfaces.PriceSource {
	if client == nil {
		return nil
	}
	return &aiSource{client: client}
}

func (s *aiSource) Name() string { return "gemini" }

func (s *aiSource) Price(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error) {
	return s.client.SearchPrice(ctx, ticker, market)
}
