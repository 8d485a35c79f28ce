package common

import (
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// RoundMoney rounds a monetary amount to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders an amount in en-US style with thousands separators and
// exactly two decimals, e.g. 1234.567 -> "1,234.57".
func FormatAmount(d decimal.Decimal) string {
	return usPrinter.Sprintf("%.2f", RoundMoney(d).InexactFloat64())
}

// sharePlaces is the precision share quantities are held at.
const sharePlaces = 8

// RoundShares rounds a share quantity to eight decimals, which removes float
// noise such as 0.19999999999999998 left by earlier arithmetic.
func RoundShares(shares float64) float64 {
	return decimal.NewFromFloat(shares).Round(sharePlaces).InexactFloat64()
}

// AddShares adds two share quantities in decimal and rounds to eight places.
// Pass a negative delta to subtract.
func AddShares(shares, delta float64) float64 {
	return decimal.NewFromFloat(shares).Add(decimal.NewFromFloat(delta)).Round(sharePlaces).InexactFloat64()
}

// FormatShares renders a share quantity without trailing zeros.
func FormatShares(shares float64) string {
	return strconv.FormatFloat(shares, 'f', -1, 64)
}
