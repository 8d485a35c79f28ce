// Package yahoo provides Yahoo Finance quotes via go-yfinance
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
)

// Client implements the YahooClient interface
type Client struct {
	logger *common.Logger
	lookup func(symbol string) (float64, error)
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		logger: common.NewSilentLogger(),
		lookup: lookupPrice,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCurrentPrice returns the best available live price for a symbol. The
// go-yfinance calls are not context-aware, so the lookup runs in a goroutine
// and ctx bounds how long the caller waits for it.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	type result struct {
		price float64
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		p, err := c.lookup(symbol)
		done <- result{price: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, ctx.Err())
	case r := <-done:
		if r.err != nil {
			c.logger.Warn().Err(r.err).Str("ticker", symbol).Dur("elapsed", time.Since(start)).Msg("Yahoo quote failed")
			return decimal.Zero, r.err
		}
		if r.price <= 0 {
			return decimal.Zero, fmt.Errorf("yahoo returned no usable price for %s", symbol)
		}
		c.logger.Debug().Str("ticker", symbol).Float64("price", r.price).Dur("elapsed", time.Since(start)).Msg("Yahoo quote")
		return decimal.NewFromFloat(r.price), nil
	}
}

// lookupPrice prefers the regular market price, then pre/post market, then
// the info endpoint's current price and previous close.
func lookupPrice(symbol string) (float64, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	quote, err := t.Quote()
	if err == nil && quote != nil {
		for _, p := range []float64{quote.RegularMarketPrice, quote.PreMarketPrice, quote.PostMarketPrice} {
			if p > 0 {
				return p, nil
			}
		}
	}

	info, err := t.Info()
	if err != nil {
		return 0, fmt.Errorf("failed to get quote info: %w", err)
	}
	if info != nil {
		if info.CurrentPrice > 0 {
			return info.CurrentPrice, nil
		}
		if info.RegularMarketPreviousClose > 0 {
			return info.RegularMarketPreviousClose, nil
		}
	}
	return 0, fmt.Errorf("no price in quote or info for %s", symbol)
}

// Ensure Client implements YahooClient
var _ interfaces.YahooClient = (*Client)(nil)
