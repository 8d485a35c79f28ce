package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iacob/internal/models"
)

func newTrade(market models.Market, ticker string, createdAt time.Time) *models.Trade {
	return &models.Trade{
		Code:      uuid.New().String(),
		Type:      models.TradeTypeBuy,
		Ticker:    ticker,
		Shares:    2,
		Price:     decimal.RequireFromString("10.5"),
		Total:     decimal.RequireFromString("21"),
		Market:    market,
		CreatedAt: createdAt,
	}
}

func TestTradeStore_AppendAndList(t *testing.T) {
	m := testManager(t)
	store := m.TradeStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := newTrade(models.MarketStock, "AAPL", base)
	newer := newTrade(models.MarketStock, "MSFT", base.Add(time.Hour))
	other := newTrade(models.MarketCrypto, "BTC", base.Add(2*time.Hour))
	newer.BrokerID = "ord-42"

	for _, tr := range []*models.Trade{older, newer, other} {
		id, err := store.Append(ctx, tr)
		require.NoError(t, err)
		assert.Equal(t, tr.Code, id)
	}

	trades, err := store.List(ctx, models.MarketStock, 100)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "MSFT", trades[0].Ticker, "newest first")
	assert.Equal(t, "AAPL", trades[1].Ticker)
	assert.Equal(t, "ord-42", trades[0].BrokerID)
	assert.Empty(t, trades[1].BrokerID)
	assert.Equal(t, models.MarketStock, trades[0].Market)
	assert.Equal(t, models.TradeTypeBuy, trades[0].Type)
	assert.True(t, decimal.RequireFromString("21").Equal(trades[0].Total))

	limited, err := store.List(ctx, models.MarketStock, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "MSFT", limited[0].Ticker)
}

func TestTradeStore_AppendRejectsDuplicateCode(t *testing.T) {
	m := testManager(t)
	store := m.TradeStore()
	ctx := context.Background()

	tr := newTrade(models.MarketStock, "AAPL", time.Now().UTC())
	_, err := store.Append(ctx, tr)
	require.NoError(t, err)

	dup := *tr
	dup.Ticker = "TSLA"
	_, err = store.Append(ctx, &dup)
	assert.Error(t, err)

	trades, err := store.List(ctx, models.MarketStock, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Ticker)
}

func TestTradeStore_ListEmpty(t *testing.T) {
	m := testManager(t)

	trades, err := m.TradeStore().List(context.Background(), models.MarketCrypto, 100)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestBalanceStore_LatestPerMarket(t *testing.T) {
	m := testManager(t)
	store := m.BalanceStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	latest, err := store.Latest(ctx, models.MarketStock)
	require.NoError(t, err)
	assert.Nil(t, latest)

	rows := []*models.BalanceRecord{
		{TradeCode: "a", Balance: decimal.RequireFromString("1000"), Market: models.MarketStock, CreatedAt: base},
		{TradeCode: "b", Balance: decimal.RequireFromString("500.25"), Market: models.MarketStock, CreatedAt: base.Add(time.Minute)},
		{TradeCode: "c", Balance: decimal.RequireFromString("42"), Market: models.MarketCrypto, CreatedAt: base.Add(time.Hour)},
	}
	for _, r := range rows {
		_, err := store.Append(ctx, r)
		require.NoError(t, err)
	}

	latest, err = store.Latest(ctx, models.MarketStock)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "b", latest.TradeCode)
	assert.Equal(t, "500.25", latest.Balance.String())
}
