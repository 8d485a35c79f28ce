// Package broker provides a client for the remote broker API
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

const (
	DefaultBaseURL   = "https://broker-simulator.onrender.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the BrokerClient interface
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

// NewClient creates a new broker client
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
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Broker API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// do performs a rate-limited request and decodes a JSON response into result
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("url", path).Dur("elapsed", elapsed).Msg("Broker API request failed")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		c.logger.Warn().Str("method", method).Str("url", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Broker API non-OK response")
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(msg),
			Endpoint:   path,
		}
	}

	c.logger.Debug().Str("method", method).Str("url", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Broker API call")

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// PlaceTrade submits an order to the broker
func (c *Client) PlaceTrade(ctx context.Context, req *models.BrokerTradeRequest) (*models.BrokerTradeResponse, error) {
	var resp models.BrokerTradeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/trade", req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("ticker", req.Ticker).
		Str("action", string(req.Action)).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Str("broker_id", resp.ID).
		Msg("Broker trade executed")

	return &resp, nil
}

type balanceResponse struct {
	CashBalance *float64 `json:"cash_balance"`
}

// GetBalance returns the account cash balance. A response without
// cash_balance is an error; an explicit zero is a valid balance.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/balance", nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.CashBalance == nil {
		return decimal.Zero, fmt.Errorf("broker balance response has no cash_balance")
	}
	return decimal.NewFromFloat(*resp.CashBalance), nil
}

type priceResponse struct {
	Price *float64 `json:"price"`
}

// GetPrice returns the broker quote for a ticker. Missing or non-positive
// prices are errors.
func (c *Client) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var resp priceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/price/"+url.PathEscape(ticker), nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Price == nil || *resp.Price <= 0 {
		return decimal.Zero, fmt.Errorf("broker returned no usable price for %s", ticker)
	}
	return decimal.NewFromFloat(*resp.Price), nil
}

// Ensure Client implements BrokerClient
var _ interfaces.BrokerClient = (*Client)(nil)
