package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":         "0.00",
		"5":         "5.00",
		"1234.567":  "1,234.57",
		"-12.3":     "-12.30",
		"1000000.1": "1,000,000.10",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(decimal.RequireFromString(in)), in)
	}
}

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.35", RoundMoney(decimal.RequireFromString("2.345")).StringFixed(2))
	assert.Equal(t, "-2.35", RoundMoney(decimal.RequireFromString("-2.345")).StringFixed(2))
}

func TestFormatShares(t *testing.T) {
	assert.Equal(t, "5", FormatShares(5))
	assert.Equal(t, "0.25", FormatShares(0.25))
}

func TestRoundShares(t *testing.T) {
	assert.Equal(t, 0.2, RoundShares(0.19999999999999998))
	assert.Equal(t, 0.12345679, RoundShares(0.123456789))
	assert.Equal(t, 5.0, RoundShares(5))
}

func TestAddShares(t *testing.T) {
	assert.Equal(t, 0.2, AddShares(0.3, -0.1))
	assert.Equal(t, 0.0, AddShares(0.2, -0.2))
	assert.Equal(t, 0.3, AddShares(0.1, 0.2))
}

func TestPriceUnavailableError_Unwrap(t *testing.T) {
	timeout := errors.New("deadline exceeded")
	err := fmt.Errorf("buy AAPL: %w", &PriceUnavailableError{
		Ticker: "AAPL",
		Market: "stock",
		Attempts: []SourceError{
			{Source: "broker", Err: timeout},
			{Source: "gemini", Err: errors.New("non-positive price")},
		},
	})

	assert.True(t, errors.Is(err, ErrPriceUnavailable))
	assert.True(t, errors.Is(err, timeout))
	assert.Contains(t, err.Error(), "broker: deadline exceeded")

	var pue *PriceUnavailableError
	if assert.True(t, errors.As(err, &pue)) {
		assert.Len(t, pue.Attempts, 2)
	}
}
