package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/models"
)

type stubPortfolio struct {
	portfolio *models.Portfolio
	err       error
}

func (s *stubPortfolio) GetPortfolio(context.Context, models.Market) (*models.Portfolio, error) {
	return s.portfolio, s.err
}

func (s *stubPortfolio) SavePortfolio(context.Context, *models.Portfolio) error { return nil }

func (s *stubPortfolio) CalculateNetWorth(context.Context, models.Market) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *stubPortfolio) CalculateAnnualizedReturn(context.Context, *models.Portfolio) (string, error) {
	return "0.00", nil
}

func (s *stubPortfolio) CalculatePortfolioValue(context.Context, models.Market) (*models.PortfolioValuation, error) {
	return nil, s.err
}

func (s *stubPortfolio) NetWorthSummary(context.Context, models.Market) (*models.NetWorthSummary, error) {
	return nil, s.err
}

func testHistory() *models.Portfolio {
	t1 := time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 10, 8, 14, 0, 0, 0, time.UTC)
	p := models.NewPortfolio(models.MarketStock)
	p.Cash = decimal.NewFromInt(360)
	p.History = []models.Trade{
		{Type: models.TradeTypeSell, Ticker: "AAPL", Shares: 1, Total: decimal.NewFromInt(100), CreatedAt: t2},
		{Type: models.TradeTypeBuy, Ticker: "AAPL", Shares: 5, Total: decimal.NewFromInt(740), CreatedAt: t1},
	}
	return p
}

func TestCashSeries(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)
	points := CashSeries(testHistory(), now)

	require.Len(t, points, 4)
	want := []string{"1000", "260", "360", "360"}
	for i, p := range points {
		assert.Equal(t, want[i], p.Cash.String(), "point %d", i)
	}
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.Equal(t, now, points[3].Date)
}

func TestCashSeries_NoHistory(t *testing.T) {
	p := models.NewPortfolio(models.MarketCrypto)
	p.Cash = decimal.NewFromInt(1000)

	points := CashSeries(p, time.Now())
	assert.Len(t, points, 1)
}

func TestRenderCashChart(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)
	png, err := RenderCashChart(models.MarketStock, CashSeries(testHistory(), now))
	require.NoError(t, err)
	assert.True(t, len(png) > 8)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestRenderCashChart_TooFewPoints(t *testing.T) {
	_, err := RenderCashChart(models.MarketStock, []CashPoint{{Date: time.Now(), Cash: decimal.NewFromInt(1000)}})
	assert.Error(t, err)
}

func TestWriteCashChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart", "cash-stock.png")

	svc := NewService(&stubPortfolio{portfolio: testHistory()}, common.NewSilentLogger())
	require.NoError(t, svc.WriteCashChart(context.Background(), models.MarketStock, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)
}

func TestWriteCashChart_PortfolioUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cash-stock.png")

	svc := NewService(&stubPortfolio{err: errors.New("balance unavailable")}, common.NewSilentLogger())
	assert.Error(t, svc.WriteCashChart(context.Background(), models.MarketStock, path))
}

func TestWriteCashChart_EmptyPathDisabled(t *testing.T) {
	svc := NewService(&stubPortfolio{err: errors.New("never called")}, common.NewSilentLogger())
	assert.NoError(t, svc.WriteCashChart(context.Background(), models.MarketStock, ""))
}

func TestWriteCashChart_NoTradesSkips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cash-crypto.png")

	svc := NewService(&stubPortfolio{portfolio: models.NewPortfolio(models.MarketCrypto)}, common.NewSilentLogger())
	require.NoError(t, svc.WriteCashChart(context.Background(), models.MarketCrypto, path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
