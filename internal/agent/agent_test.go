package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/models"
)

// --- mock implementations ---

type scriptedSession struct {
	replies []*genai.GenerateContentResponse
	sent    [][]*genai.Part
	history []*genai.Content
}

func (s *scriptedSession) Send(_ context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	s.sent = append(s.sent, parts)
	s.history = append(s.history, &genai.Content{Role: "user", Parts: parts})
	if len(s.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	s.history = append(s.history, reply.Candidates[0].Content)
	return reply, nil
}

func (s *scriptedSession) History(bool) []*genai.Content { return s.history }

func textReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
	}}}
}

func callReply(calls ...*genai.FunctionCall) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, &genai.Part{FunctionCall: c})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: parts},
	}}}
}

type memThreads struct {
	loaded []*genai.Content
	saved  []*genai.Content
}

func (m *memThreads) Load(context.Context) []*genai.Content { return m.loaded }

func (m *memThreads) Save(_ context.Context, h []*genai.Content) error {
	m.saved = h
	return nil
}

type recordingNotifier struct{ reports []string }

func (r *recordingNotifier) SendReport(_ context.Context, report string) bool {
	r.reports = append(r.reports, report)
	return true
}

type stubPrices struct{}

func (stubPrices) ResolvePrice(_ context.Context, ticker string, _ models.Market) (decimal.Decimal, error) {
	if ticker == "NOPE" {
		return decimal.Zero, common.ErrPriceUnavailable
	}
	return decimal.RequireFromString("187.5"), nil
}

type stubPortfolio struct{}

func (stubPortfolio) GetPortfolio(_ context.Context, m models.Market) (*models.Portfolio, error) {
	p := models.NewPortfolio(m)
	p.Cash = decimal.RequireFromString("812.5")
	p.Holdings["AAPL"] = 1
	p.History = []models.Trade{{
		Type: models.TradeTypeBuy, Ticker: "AAPL", Shares: 1,
		Price: decimal.RequireFromString("187.5"), Total: decimal.RequireFromString("187.5"),
		CreatedAt: time.Date(2026, 10, 14, 14, 30, 0, 0, time.UTC),
	}}
	return p, nil
}

func (stubPortfolio) SavePortfolio(context.Context, *models.Portfolio) error { return nil }

func (stubPortfolio) CalculateNetWorth(context.Context, models.Market) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}

func (stubPortfolio) CalculateAnnualizedReturn(context.Context, *models.Portfolio) (string, error) {
	return "N/A", nil
}

func (stubPortfolio) CalculatePortfolioValue(context.Context, models.Market) (*models.PortfolioValuation, error) {
	return nil, errors.New("not used")
}

func (stubPortfolio) NetWorthSummary(_ context.Context, m models.Market) (*models.NetWorthSummary, error) {
	return &models.NetWorthSummary{
		Market:           m,
		NetWorth:         decimal.RequireFromString("1012.5"),
		Cash:             decimal.RequireFromString("812.5"),
		HoldingsValue:    decimal.NewFromInt(200),
		AnnualizedReturn: "N/A",
		Change:           decimal.RequireFromString("12.5"),
	}, nil
}

type recordingExecutor struct{ requests []models.TradeRequest }

func (r *recordingExecutor) Buy(ctx context.Context, m models.Market, t string, s float64) (*models.TradeResult, error) {
	return r.Execute(ctx, models.TradeRequest{Market: m, Type: models.TradeTypeBuy, Ticker: t, Shares: s})
}

func (r *recordingExecutor) Sell(ctx context.Context, m models.Market, t string, s float64) (*models.TradeResult, error) {
	return r.Execute(ctx, models.TradeRequest{Market: m, Type: models.TradeTypeSell, Ticker: t, Shares: s})
}

func (r *recordingExecutor) Execute(_ context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	r.requests = append(r.requests, req)
	if req.Ticker == "NOPE" {
		return nil, common.ErrPriceUnavailable
	}
	return &models.TradeResult{Outcome: models.TradeExecuted, Message: "Purchased " + req.Ticker}, nil
}

type stubSearch struct{}

func (stubSearch) WebSearch(_ context.Context, query string) (string, error) {
	return "## Results for " + query, nil
}

func newTestTools(market models.Market) (*Tools, *recordingExecutor) {
	exec := &recordingExecutor{}
	return &Tools{
		Market:    market,
		Search:    stubSearch{},
		Prices:    stubPrices{},
		Portfolio: stubPortfolio{},
		Trading:   exec,
		Logger:    common.NewSilentLogger(),
	}, exec
}

func writePrompt(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system-prompt.md")
	require.NoError(t, os.WriteFile(path, []byte("You are a disciplined trader.\n"), 0644))
	return path
}

func TestLibrary_Dispatch(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	lib := NewLibrary(tools.Functions())

	resp := lib(context.Background(), &genai.FunctionCall{ID: "1", Name: "think", Args: map[string]any{
		"thought_process": []any{"check cash", "check news"},
	}})
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, "Completed thinking with 2 steps of reasoning.", resp.Response["output"])

	resp = lib(context.Background(), &genai.FunctionCall{ID: "2", Name: "short_sell"})
	assert.Equal(t, "unknown function short_sell", resp.Response["error"])
}

func TestDeclarations_PerMarket(t *testing.T) {
	names := func(m models.Market) []string {
		tools, _ := newTestTools(m)
		var out []string
		for _, d := range NewDeclarations(tools.Functions()) {
			out = append(out, d.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"think", "web_search", "buy", "sell", "get_stock_price", "get_portfolio", "get_net_worth"}, names(models.MarketStock))
	assert.Contains(t, names(models.MarketCrypto), "get_crypto_price")
	assert.NotContains(t, names(models.MarketCrypto), "get_stock_price")
}

func TestTradeFunction(t *testing.T) {
	tools, exec := newTestTools(models.MarketCrypto)
	lib := NewLibrary(tools.Functions())

	resp := lib(context.Background(), &genai.FunctionCall{Name: "buy", Args: map[string]any{"ticker": "ETH", "shares": 0.25}})
	assert.Equal(t, "Purchased ETH", resp.Response["output"])
	require.Len(t, exec.requests, 1)
	assert.Equal(t, models.TradeRequest{Market: models.MarketCrypto, Type: models.TradeTypeBuy, Ticker: "ETH", Shares: 0.25}, exec.requests[0])

	resp = lib(context.Background(), &genai.FunctionCall{Name: "sell", Args: map[string]any{"ticker": "ETH"}})
	assert.Contains(t, resp.Response["error"], "shares")

	resp = lib(context.Background(), &genai.FunctionCall{Name: "buy", Args: map[string]any{"ticker": "NOPE", "shares": 1.0}})
	assert.Contains(t, resp.Response["error"], "price unavailable")
}

func TestPriceFunction(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	lib := NewLibrary(tools.Functions())

	resp := lib(context.Background(), &genai.FunctionCall{Name: "get_stock_price", Args: map[string]any{"ticker": " AAPL "}})
	assert.Equal(t, "AAPL", resp.Response["ticker"])
	assert.Equal(t, 187.5, resp.Response["price"])
}

func TestPortfolioAndNetWorthFunctions(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	lib := NewLibrary(tools.Functions())

	resp := lib(context.Background(), &genai.FunctionCall{Name: "get_portfolio"})
	out, _ := resp.Response["output"].(string)
	assert.Contains(t, out, "Your cash balance is $812.50.")
	assert.Contains(t, out, "  - AAPL: 1 shares")
	assert.Contains(t, out, "2026-10-14T14:30:00Z buy AAPL 1 shares at $187.5 per share, for a total of $187.50")

	resp = lib(context.Background(), &genai.FunctionCall{Name: "get_net_worth"})
	out, _ = resp.Response["output"].(string)
	assert.Equal(t, "Your current net worth is $1,012.50\n- Cash: $812.50\n- Holdings value: $200.00\n- Annualized return: N/A% (started with $1,000.00)\n- 📈 Up $12.50 from initial investment", out)
}

func TestRun_ToolLoopThenReport(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	session := &scriptedSession{replies: []*genai.GenerateContentResponse{
		callReply(
			&genai.FunctionCall{ID: "a", Name: "get_portfolio"},
			&genai.FunctionCall{ID: "b", Name: "get_stock_price", Args: map[string]any{"ticker": "MSFT"}},
		),
		callReply(&genai.FunctionCall{ID: "c", Name: "buy", Args: map[string]any{"ticker": "MSFT", "shares": 2.0}}),
		textReply("Bought 2 MSFT. Holding the rest in cash."),
	}}
	threads := &memThreads{loaded: []*genai.Content{genai.NewContentFromText("previous run", genai.RoleModel)}}
	notifier := &recordingNotifier{}

	var seeded []*genai.Content
	factory := func(_ context.Context, cfg *genai.GenerateContentConfig, history []*genai.Content) (Session, error) {
		seeded = history
		assert.Equal(t, "You are a disciplined trader.", cfg.SystemInstruction.Parts[0].Text)
		return session, nil
	}

	a := New(Config{Market: models.MarketStock, PromptFile: writePrompt(t), Notify: true}, factory, tools, threads, notifier, common.NewSilentLogger())
	a.now = func() time.Time { return time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC) }

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, seeded, 1, "previous thread seeds the chat")
	assert.Equal(t, 3, res.Turns)
	assert.Equal(t, 3, res.ToolCalls)
	assert.Equal(t, "Bought 2 MSFT. Holding the rest in cash.", res.FinalOutput)
	assert.True(t, res.Notified)
	assert.Equal(t, []string{"Bought 2 MSFT. Holding the rest in cash."}, notifier.reports)

	require.Len(t, session.sent, 3)
	assert.True(t, strings.HasPrefix(session.sent[0][0].Text, "It's 10/15/2026, 2:30:00 PM. Time for your trading analysis!"))
	require.Len(t, session.sent[1], 2, "one response per call")
	assert.Equal(t, "a", session.sent[1][0].FunctionResponse.ID)
	assert.Equal(t, "b", session.sent[1][1].FunctionResponse.ID)

	assert.Len(t, threads.saved, 6)
}

func TestRun_MaxTurns(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	loop := callReply(&genai.FunctionCall{Name: "think", Args: map[string]any{"thought_process": []any{"hmm"}}})
	session := &scriptedSession{replies: []*genai.GenerateContentResponse{loop, loop, loop}}
	threads := &memThreads{}
	notifier := &recordingNotifier{}

	factory := func(context.Context, *genai.GenerateContentConfig, []*genai.Content) (Session, error) { return session, nil }
	a := New(Config{Market: models.MarketStock, PromptFile: writePrompt(t), MaxTurns: 2, Notify: true}, factory, tools, threads, notifier, common.NewSilentLogger())

	res, err := a.Run(context.Background())
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 2, res.Turns)
	assert.NotEmpty(t, threads.saved, "partial thread is kept")
	assert.Empty(t, notifier.reports)
}

func TestRun_MissingPrompt(t *testing.T) {
	tools, _ := newTestTools(models.MarketStock)
	factory := func(context.Context, *genai.GenerateContentConfig, []*genai.Content) (Session, error) {
		t.Fatal("session must not start without a prompt")
		return nil, nil
	}
	a := New(Config{Market: models.MarketStock, PromptFile: filepath.Join(t.TempDir(), "missing.md")}, factory, tools, &memThreads{}, nil, common.NewSilentLogger())

	_, err := a.Run(context.Background())
	assert.Error(t, err)
}
