package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/models"
)

// CashPoint is the cash balance right after a trade.
type CashPoint struct {
	Date time.Time
	Cash decimal.Decimal
}

// CashSeries rebuilds the cash balance over time from the trade history,
// oldest first. The walk starts from the current cash and undoes trades
// backwards, so a truncated history still ends at the real balance. The
// final point is stamped at now.
func CashSeries(p *models.Portfolio, now time.Time) []CashPoint {
	trades := make([]models.Trade, len(p.History))
	copy(trades, p.History)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].CreatedAt.After(trades[j].CreatedAt)
	})

	points := make([]CashPoint, 0, len(trades)+1)
	points = append(points, CashPoint{Date: now, Cash: p.Cash})

	cash := p.Cash
	for _, t := range trades {
		points = append(points, CashPoint{Date: t.CreatedAt, Cash: cash})
		switch t.Type {
		case models.TradeTypeBuy:
			cash = cash.Add(t.Total)
		case models.TradeTypeSell:
			cash = cash.Sub(t.Total)
		}
	}
	if len(trades) > 0 {
		// balance before the oldest known trade
		first := trades[len(trades)-1].CreatedAt.Add(-time.Minute)
		points = append(points, CashPoint{Date: first, Cash: common.RoundMoney(cash)})
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}

// RenderCashChart renders a PNG line chart of the cash balance with the
// initial investment as a dashed baseline. Returns raw PNG bytes.
func RenderCashChart(market models.Market, points []CashPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	cashY := make([]float64, len(points))
	baseY := make([]float64, len(points))
	base := models.InitialInvestment.InexactFloat64()

	for i, p := range points {
		xValues[i] = p.Date
		cashY[i] = p.Cash.InexactFloat64()
		baseY[i] = base
	}

	cashSeries := chart.TimeSeries{
		Name: "Cash",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"), // green-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: cashY,
	}

	baseSeries := chart.TimeSeries{
		Name: "Initial Investment",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: baseY,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Cash Balance", market.Label()),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			cashSeries,
			baseSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
