package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// WebSearcher answers free-form research queries.
type WebSearcher interface {
	WebSearch(ctx context.Context, query string) (string, error)
}

// Tools holds the services the agent's functions call into.
type Tools struct {
	Market    models.Market
	Search    WebSearcher
	Prices    interfaces.PriceResolver
	Portfolio interfaces.PortfolioService
	Trading   interfaces.TradeExecutor
	Logger    *common.Logger
}

// Functions returns every tool available for the market.
func (t *Tools) Functions() []Function {
	fns := []Function{
		&thinkFunction{logger: t.Logger},
		&tradeFunction{tools: t, side: models.TradeTypeBuy},
		&tradeFunction{tools: t, side: models.TradeTypeSell},
		&priceFunction{tools: t},
		&portfolioFunction{tools: t},
		&netWorthFunction{tools: t},
	}
	if t.Search != nil {
		fns = append(fns, &webSearchFunction{tools: t})
	}
	return fns
}

// think

type thinkFunction struct {
	logger *common.Logger
}

func (f *thinkFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "think",
		Description: "Think about a given topic. Use this before every decision to lay out your reasoning step by step.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"thought_process": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Ordered reasoning steps.",
				},
			},
			Required: []string{"thought_process"},
		},
	}
}

func (f *thinkFunction) Call(_ context.Context, id string, args map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	thoughts, err := stringsArg(args, "thought_process")
	if err != nil {
		return errorResponse(id, name, err)
	}
	for _, thought := range thoughts {
		f.logger.Info().Str("tool", name).Msg("🧠 " + thought)
	}
	return outputResponse(id, name, fmt.Sprintf("Completed thinking with %d steps of reasoning.", len(thoughts)))
}

// web_search

type webSearchFunction struct {
	tools *Tools
}

func (f *webSearchFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "web_search",
		Description: "Search the web for information such as news, market analysis and company or token fundamentals.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {Type: genai.TypeString, Description: "What to search for."},
			},
			Required: []string{"query"},
		},
	}
}

func (f *webSearchFunction) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	query, err := stringArg(args, "query")
	if err != nil {
		return errorResponse(id, name, err)
	}
	f.tools.Logger.Info().Str("query", query).Msg("🔍 Searching the web")
	answer, err := f.tools.Search.WebSearch(ctx, query)
	if err != nil {
		f.tools.Logger.Warn().Err(err).Str("query", query).Msg("Web search failed")
		return errorResponse(id, name, err)
	}
	return outputResponse(id, name, answer)
}

// buy / sell

type tradeFunction struct {
	tools *Tools
	side  models.TradeType
}

func (f *tradeFunction) Declaration() *genai.FunctionDeclaration {
	unit := "shares"
	if !f.tools.Market.WholeSharesOnly() {
		unit = "units (fractions allowed)"
	}
	return &genai.FunctionDeclaration{
		Name:        string(f.side),
		Description: fmt.Sprintf("%s a given %s at the current market price", titleCase(string(f.side)), assetNoun(f.tools.Market)),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"ticker": {Type: genai.TypeString, Description: "Ticker symbol, e.g. AAPL or BTC."},
				"shares": {Type: genai.TypeNumber, Description: "Quantity to trade, in " + unit + "."},
			},
			Required: []string{"ticker", "shares"},
		},
	}
}

func (f *tradeFunction) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	ticker, err := stringArg(args, "ticker")
	if err != nil {
		return errorResponse(id, name, err)
	}
	shares, err := numberArg(args, "shares")
	if err != nil {
		return errorResponse(id, name, err)
	}

	result, err := f.tools.Trading.Execute(ctx, models.TradeRequest{
		Market: f.tools.Market,
		Type:   f.side,
		Ticker: ticker,
		Shares: shares,
	})
	if err != nil {
		return errorResponse(id, name, fmt.Errorf("could not %s %s: %w", f.side, ticker, err))
	}
	return outputResponse(id, name, result.Message)
}

// get_stock_price / get_crypto_price

type priceFunction struct {
	tools *Tools
}

func (f *priceFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        fmt.Sprintf("get_%s_price", f.tools.Market),
		Description: fmt.Sprintf("Get the current price of a given %s ticker", assetNoun(f.tools.Market)),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"ticker": {Type: genai.TypeString, Description: "Ticker symbol."},
			},
			Required: []string{"ticker"},
		},
	}
}

func (f *priceFunction) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	ticker, err := stringArg(args, "ticker")
	if err != nil {
		return errorResponse(id, name, err)
	}
	ticker = strings.TrimSpace(ticker)

	price, err := f.tools.Prices.ResolvePrice(ctx, ticker, f.tools.Market)
	if err != nil {
		return errorResponse(id, name, err)
	}
	f.tools.Logger.Info().Str("ticker", ticker).Str("price", price.String()).Msg("🔖 Price looked up")
	return &genai.FunctionResponse{
		ID:       id,
		Name:     name,
		Response: map[string]any{"ticker": ticker, "price": price.InexactFloat64()},
	}
}

// get_portfolio

type portfolioFunction struct {
	tools *Tools
}

func (f *portfolioFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "get_portfolio",
		Description: "Get your portfolio: cash balance, current holdings and trade history",
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (f *portfolioFunction) Call(ctx context.Context, id string, _ map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	p, err := f.tools.Portfolio.GetPortfolio(ctx, f.tools.Market)
	if err != nil {
		return errorResponse(id, name, err)
	}
	f.tools.Logger.Info().Str("cash", p.Cash.String()).Msg("💹 Fetched portfolio")
	return outputResponse(id, name, FormatPortfolio(p))
}

// FormatPortfolio renders the portfolio the way the agent reads it.
func FormatPortfolio(p *models.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your cash balance is $%s.\n", p.Cash.StringFixed(2))
	b.WriteString("Current holdings:\n")
	positions := p.Positions()
	if len(positions) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, ticker := range positions {
		fmt.Fprintf(&b, "  - %s: %s shares\n", ticker, common.FormatShares(p.Holdings[ticker]))
	}
	b.WriteString("\nTrade history:\n")
	if len(p.History) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, t := range p.History {
		fmt.Fprintf(&b, "  - %s %s %s %s shares at $%s per share, for a total of $%s\n",
			t.CreatedAt.UTC().Format(time.RFC3339), t.Type, t.Ticker, common.FormatShares(t.Shares),
			t.Price.String(), t.Total.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

// get_net_worth

type netWorthFunction struct {
	tools *Tools
}

func (f *netWorthFunction) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "get_net_worth",
		Description: "Get your current net worth (total portfolio value)",
		Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
	}
}

func (f *netWorthFunction) Call(ctx context.Context, id string, _ map[string]any) *genai.FunctionResponse {
	name := f.Declaration().Name
	s, err := f.tools.Portfolio.NetWorthSummary(ctx, f.tools.Market)
	if err != nil {
		return errorResponse(id, name, err)
	}
	f.tools.Logger.Info().
		Str("net_worth", s.NetWorth.String()).
		Str("annualized_return", s.AnnualizedReturn).
		Msg("💰 Current net worth")
	return outputResponse(id, name, FormatNetWorth(s))
}

// FormatNetWorth renders the net worth summary the way the agent reads it.
func FormatNetWorth(s *models.NetWorthSummary) string {
	direction := "📈 Up"
	if s.Change.IsNegative() {
		direction = "📉 Down"
	}
	return fmt.Sprintf("Your current net worth is $%s\n- Cash: $%s\n- Holdings value: $%s\n- Annualized return: %s%% (started with $%s)\n- %s $%s from initial investment",
		common.FormatAmount(s.NetWorth),
		common.FormatAmount(s.Cash),
		common.FormatAmount(s.HoldingsValue),
		s.AnnualizedReturn,
		common.FormatAmount(models.InitialInvestment),
		direction,
		common.FormatAmount(s.Change.Abs()),
	)
}

func assetNoun(m models.Market) string {
	if m == models.MarketCrypto {
		return "crypto"
	}
	return "stock"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
