package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/iacob/internal/models"
)

func TestCommands_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range commands {
		assert.False(t, seen[c.Name()], "duplicate command %s", c.Name())
		seen[c.Name()] = true
		assert.NotEmpty(t, c.Synopsis())
		assert.NotEmpty(t, c.Usage())
	}
	for _, name := range []string{"run", "serve", "portfolio", "price", "chart", "version"} {
		assert.True(t, seen[name], "missing command %s", name)
	}
}

func TestFormatValuation(t *testing.T) {
	got := formatValuation(&models.PortfolioValuation{
		Market: models.MarketCrypto,
		Cash:   decimal.RequireFromString("360"),
		Holdings: []models.HoldingValuation{
			{Ticker: "BTC", Shares: 0.01, Price: decimal.NewFromInt(64000), Value: decimal.NewFromInt(640), Priced: true},
			{Ticker: "DOGE", Shares: 100},
		},
		TotalValue: decimal.NewFromInt(1000),
	})

	assert.Contains(t, got, "CRYPTO portfolio\n")
	assert.Contains(t, got, "$64,000.00")
	assert.Contains(t, got, "$640.00")
	assert.Contains(t, got, "0.01")
	assert.Contains(t, got, "n/a")
	assert.Contains(t, got, "$1,000.00")
}
