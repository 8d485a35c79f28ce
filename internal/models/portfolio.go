package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// InitialInvestment is the baseline every return figure is measured against.
var InitialInvestment = decimal.NewFromInt(1000)

// Portfolio is the composed view of one market: holdings from the local
// snapshot, cash from the balance source and history from the ledger.
type Portfolio struct {
	Market   Market             `json:"market"`
	Cash     decimal.Decimal    `json:"cash"`
	Holdings map[string]float64 `json:"holdings"`
	History  []Trade            `json:"history"`
}

// NewPortfolio returns an empty portfolio for a market.
func NewPortfolio(market Market) *Portfolio {
	return &Portfolio{
		Market:   market,
		Holdings: make(map[string]float64),
		History:  []Trade{},
	}
}

// Shares returns the quantity held for a ticker, 0 when absent.
func (p *Portfolio) Shares(ticker string) float64 {
	if p == nil || p.Holdings == nil {
		return 0
	}
	return p.Holdings[ticker]
}

// Positions returns the tickers with a positive quantity, sorted.
func (p *Portfolio) Positions() []string {
	tickers := make([]string, 0, len(p.Holdings))
	for ticker, shares := range p.Holdings {
		if shares > 0 {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p *Portfolio) Clone() *Portfolio {
	c := &Portfolio{
		Market:   p.Market,
		Cash:     p.Cash,
		Holdings: make(map[string]float64, len(p.Holdings)),
		History:  make([]Trade, len(p.History)),
	}
	for k, v := range p.Holdings {
		c.Holdings[k] = v
	}
	copy(c.History, p.History)
	return c
}

// HoldingValuation is the valued position for a single ticker. Priced is
// false when no price source could price the ticker and Value is 0.
type HoldingValuation struct {
	Ticker string          `json:"ticker"`
	Shares float64         `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
	Priced bool            `json:"priced"`
}

// PortfolioValuation breaks a portfolio down by holding.
type PortfolioValuation struct {
	Market     Market             `json:"market"`
	Cash       decimal.Decimal    `json:"cash"`
	Holdings   []HoldingValuation `json:"holdings"`
	TotalValue decimal.Decimal    `json:"total_value"`
}

// NetWorthSummary is the headline view reported to the agent.
type NetWorthSummary struct {
	Market           Market          `json:"market"`
	NetWorth         decimal.Decimal `json:"net_worth"`
	Cash             decimal.Decimal `json:"cash"`
	HoldingsValue    decimal.Decimal `json:"holdings_value"`
	AnnualizedReturn string          `json:"annualized_return"`
	Change           decimal.Decimal `json:"change"`
}
