package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the valuation and trading core. Callers test with
// errors.Is; concrete errors wrap one of these with context.
var (
	ErrInvalidRequest     = errors.New("invalid trade request")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrBalanceUnavailable = errors.New("balance unavailable")
	ErrLedgerRead         = errors.New("ledger read failed")
	ErrLedgerWrite        = errors.New("ledger write failed")
	ErrValidation         = errors.New("trade record validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPartialPersistence = errors.New("partial persistence failure")
	ErrHoldingsStore      = errors.New("holdings store failure")
)

// SourceError records a single failed price source attempt.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// PriceUnavailableError is returned when every configured price source failed.
type PriceUnavailableError struct {
	Ticker   string
	Market   string
	Attempts []SourceError
}

func (e *PriceUnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("price unavailable for %s (%s): no sources configured", e.Ticker, e.Market)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("price unavailable for %s (%s): %s", e.Ticker, e.Market, strings.Join(parts, "; "))
}

// Unwrap exposes ErrPriceUnavailable and every per-source cause.
func (e *PriceUnavailableError) Unwrap() []error {
	errs := []error{ErrPriceUnavailable}
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
