package holdings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(func(m models.Market) string {
		return filepath.Join(dir, "portfolio_"+m.String()+".json")
	}, common.NewSilentLogger()), dir
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	p, err := store.Load(context.Background(), models.MarketStock)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStock, p.Market)
	assert.Empty(t, p.Holdings)
	assert.True(t, p.Cash.IsZero())
}

func TestSaveLoad_RoundTripHoldings(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	p := models.NewPortfolio(models.MarketCrypto)
	p.Cash = decimal.RequireFromString("512.345")
	p.Holdings["BTC"] = 0.0125
	p.Holdings["ETH"] = 1.5
	p.Holdings["DOGE"] = 0
	p.History = []models.Trade{{Code: "x", Ticker: "BTC"}}

	require.NoError(t, store.Save(ctx, p))

	got, err := store.Load(ctx, models.MarketCrypto)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 0.0125, "ETH": 1.5}, got.Holdings)
	assert.Equal(t, "512.35", got.Cash.StringFixed(2))
	assert.Empty(t, got.History)

	raw, err := os.ReadFile(filepath.Join(dir, "portfolio_crypto.json"))
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `[]`, string(doc["history"]))
}

func TestLoad_KeepsMarketsSeparate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	stock := models.NewPortfolio(models.MarketStock)
	stock.Holdings["AAPL"] = 3
	require.NoError(t, store.Save(ctx, stock))

	crypto, err := store.Load(ctx, models.MarketCrypto)
	require.NoError(t, err)
	assert.Empty(t, crypto.Holdings)
}

func TestLoad_CorruptFileFails(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portfolio_stock.json"), []byte(`{"cash": 1, "holdings": `), 0644))

	_, err := store.Load(context.Background(), models.MarketStock)
	assert.ErrorIs(t, err, common.ErrHoldingsStore)
}

func TestLoad_NegativeQuantityFails(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portfolio_stock.json"), []byte(`{"cash": 1, "holdings": {"AAPL": -2}, "history": []}`), 0644))

	_, err := store.Load(context.Background(), models.MarketStock)
	assert.ErrorIs(t, err, common.ErrHoldingsStore)
}
