// Package alphavantage provides a client for the AlphaVantage quote API
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // free tier allows a handful of calls per minute
)

// Client implements the AlphaVantageClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new AlphaVantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AlphaVantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// query performs a rate-limited GET against /query
func (c *Client) query(ctx context.Context, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	fn := params.Get("function")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("function", fn).Msg("AlphaVantage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Function: fn}
	}

	// Throttling and bad keys come back as 200 with a message field
	var notice struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &notice); err == nil {
		if msg := firstNonEmpty(notice.ErrorMessage, notice.Note, notice.Information); msg != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg, Function: fn}
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

// GetStockQuote returns the latest GLOBAL_QUOTE price for an equity symbol
func (c *Client) GetStockQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	var resp globalQuoteResponse
	if err := c.query(ctx, params, &resp); err != nil {
		return decimal.Zero, err
	}

	return parsePositive(resp.GlobalQuote["05. price"], symbol)
}

type exchangeRateResponse struct {
	Rate map[string]string `json:"Realtime Currency Exchange Rate"`
}

// GetExchangeRate returns the CURRENCY_EXCHANGE_RATE from one currency to another
func (c *Client) GetExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", strings.ToUpper(from))
	params.Set("to_currency", strings.ToUpper(to))

	var resp exchangeRateResponse
	if err := c.query(ctx, params, &resp); err != nil {
		return decimal.Zero, err
	}

	return parsePositive(resp.Rate["5. Exchange Rate"], from)
}

func parsePositive(raw, symbol string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no price found in response for %s", symbol)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q for %s: %w", raw, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s for %s", price, symbol)
	}
	return price, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure Client implements AlphaVantageClient
var _ interfaces.AlphaVantageClient = (*Client)(nil)
