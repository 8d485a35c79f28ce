package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient("demo", WithBaseURL(srv.URL), WithRateLimit(100))
}

func TestGetStockQuote(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", q.Get("function"))
		assert.Equal(t, "IBM", q.Get("symbol"))
		assert.Equal(t, "demo", q.Get("apikey"))
		w.Write([]byte(`{"Global Quote": {"01. symbol": "IBM", "05. price": "231.4400"}}`))
	})

	price, err := client.GetStockQuote(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "231.44", price.String())
}

func TestGetStockQuote_EmptyQuote(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	})

	_, err := client.GetStockQuote(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestGetExchangeRate(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "CURRENCY_EXCHANGE_RATE", q.Get("function"))
		assert.Equal(t, "BTC", q.Get("from_currency"))
		assert.Equal(t, "USD", q.Get("to_currency"))
		w.Write([]byte(`{"Realtime Currency Exchange Rate": {"1. From_Currency Code": "BTC", "5. Exchange Rate": "64250.12000000"}}`))
	})

	price, err := client.GetExchangeRate(context.Background(), "btc", "usd")
	require.NoError(t, err)
	assert.Equal(t, "64250.12", price.String())
}

func TestQuery_ThrottleNoteIsAPIError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
	})

	_, err := client.GetStockQuote(context.Background(), "IBM")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "GLOBAL_QUOTE", apiErr.Function)
}

func TestGetStockQuote_NonPositive(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {"05. price": "0.0000"}}`))
	})

	_, err := client.GetStockQuote(context.Background(), "IBM")
	assert.Error(t, err)
}
