// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

const DefaultModel = "gemini-3-flash-preview"

// Client implements the GeminiClient interface
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// NewChat starts a multi-turn chat seeded with history
func (c *Client) NewChat(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content) (*genai.Chat, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, config, history)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// priceSchema constrains price answers to {"price": number}
var priceSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"price": {
			Type:        genai.TypeNumber,
			Description: "Latest traded price in USD.",
		},
	},
	Required: []string{"price"},
}

// SearchPrice asks the model to search the web for the latest price of a
// ticker and answer in the structured price schema.
func (c *Client) SearchPrice(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error) {
	c.logger.Debug().Str("model", c.model).Str("ticker", ticker).Str("market", market.String()).Msg("Searching price")

	config := &genai.GenerateContentConfig{
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType: "application/json",
		ResponseSchema:   priceSchema,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(pricePrompt(ticker, market)), config)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to generate price answer: %w", err)
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return decimal.Zero, err
	}

	return parsePriceAnswer(text)
}

func pricePrompt(ticker string, market models.Market) string {
	if market == models.MarketCrypto {
		return fmt.Sprintf(`What is the current price of the crypto %q? Please use web search to get the latest price and then answer in short.`, ticker)
	}
	return fmt.Sprintf(`What is the current price of the stock ticker $%s? Please use web search to get the latest price and then answer in short.`, ticker)
}

// parsePriceAnswer decodes a {"price": number} answer. Anything else,
// including a non-positive price, is ErrPriceUnavailable.
func parsePriceAnswer(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var answer struct {
		Price *json.Number `json:"price"`
	}
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparseable model answer %q", common.ErrPriceUnavailable, text)
	}
	if answer.Price == nil {
		return decimal.Zero, fmt.Errorf("%w: model answer has no price", common.ErrPriceUnavailable)
	}

	price, err := decimal.NewFromString(answer.Price.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: non-numeric price %q", common.ErrPriceUnavailable, answer.Price.String())
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s", common.ErrPriceUnavailable, price)
	}
	return price, nil
}

// WebSearch answers a query using Google Search grounding
func (c *Client) WebSearch(ctx context.Context, query string) (string, error) {
	c.logger.Debug().Str("model", c.model).Str("query", query).Msg("Web search")

	prompt := "Search the web and answer concisely in markdown. Include figures and dates where relevant.\n\n" + query
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate search answer: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

// Ensure Client implements GeminiClient
var _ interfaces.GeminiClient = (*Client)(nil)
