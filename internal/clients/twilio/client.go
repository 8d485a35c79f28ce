// Package twilio provides a minimal client for Twilio WhatsApp messaging
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
)

const (
	DefaultBaseURL = "https://api.twilio.com"
	DefaultTimeout = 30 * time.Second
)

// Client implements the WhatsAppClient interface
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	contentSID string
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

// WithContentTemplate sends messages through an approved content template
// whose single variable is "message".
func WithContentTemplate(contentSID string) ClientOption {
	return func(c *Client) {
		c.contentSID = contentSID
	}
}

// NewClient creates a new Twilio client sending from the given WhatsApp number
func NewClient(accountSID, authToken, from string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       whatsappAddress(from),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Twilio API error: %s (status: %d, code: %d)", e.Message, e.StatusCode, e.Code)
}

// SendMessage sends a WhatsApp message and returns the message SID
func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", whatsappAddress(to))
	if c.contentSID != "" {
		vars, err := json.Marshal(map[string]string{"message": body})
		if err != nil {
			return "", fmt.Errorf("failed to encode content variables: %w", err)
		}
		form.Set("ContentSid", c.contentSID)
		form.Set("ContentVariables", string(vars))
	} else {
		form.Set("Body", body)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(data)
		}
		return "", apiErr
	}

	var msg struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info().Str("sid", msg.SID).Str("to", to).Msg("WhatsApp message sent")
	return msg.SID, nil
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// Ensure Client implements WhatsAppClient
var _ interfaces.WhatsAppClient = (*Client)(nil)
