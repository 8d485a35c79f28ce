// Package models defines the data types shared across Iacob
package models

import (
	"fmt"
	"strings"
)

// Market selects which asset class a run operates on. Every read and write of
// portfolios, trades and balances is scoped to one market.
type Market string

const (
	MarketStock  Market = "stock"
	MarketCrypto Market = "crypto"
)

// ValidMarkets lists the supported markets.
var ValidMarkets = map[Market]bool{
	MarketStock:  true,
	MarketCrypto: true,
}

// ParseMarket accepts a market name in any case ("STOCK", "crypto").
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToLower(strings.TrimSpace(s)))
	if !ValidMarkets[m] {
		return "", fmt.Errorf("unknown market type %q (expected stock or crypto)", s)
	}
	return m, nil
}

// Valid reports whether m is a supported market.
func (m Market) Valid() bool {
	return ValidMarkets[m]
}

// WholeSharesOnly reports whether quantities must be integers in this market.
func (m Market) WholeSharesOnly() bool {
	return m == MarketStock
}

// Label returns the upper-case name used by remote tables (STOCK, CRYPTO).
func (m Market) Label() string {
	return strings.ToUpper(string(m))
}

func (m Market) String() string {
	return string(m)
}
