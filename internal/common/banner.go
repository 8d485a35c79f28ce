package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner writes the startup banner and logs the effective settings.
func PrintBanner(w io.Writer, config *Config, logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset

	art := []string{
		` 8888888        d8888  .d8888b.   .d88888b.  888888b.`,
		`   888         d88888 d88P  Y88b d88P" "Y88b 888  "88b`,
		`   888        d88P888 888    888 888     888 888  .88P`,
		`   888       d88P 888 888        888     888 8888888K.`,
		`   888      d88P  888 888        888     888 888  "Y88b`,
		`   888     d88P   888 888    888 888     888 888    888`,
		`   888    d8888888888 Y88b  d88P Y88b. .d88P 888   d88P`,
		` 8888888 d88P     888  "Y8888P"   "Y88888P"  8888888P"`,
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Autonomous Trading Assistant%s\n\n%s\n\n", textColor, banner.ColorReset, hr)

	market := config.Market
	kvLines := [][2]string{
		{"Version", GetVersion()},
		{"Environment", config.Environment},
		{"Market", market},
		{"Trading mode", config.Trading.Mode},
		{"Balance source", config.Trading.BalanceSource},
		{"Ledger", config.Storage.Ledger.Address},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-16s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)

	logger.Info().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Str("market", market).
		Str("trading_mode", config.Trading.Mode).
		Str("balance_source", config.Trading.BalanceSource).
		Str("ledger_address", config.Storage.Ledger.Address).
		Msg("Application started")
}

// PrintShutdownBanner writes the shutdown banner.
func PrintShutdownBanner(w io.Writer, logger *Logger) {
	hr := banner.ColorCyan + strings.Repeat("═", 42) + banner.ColorReset
	fmt.Fprintf(w, "\n%s\n%s  IACOB SHUTTING DOWN%s\n%s\n\n", hr, banner.ColorBold+banner.ColorWhite, banner.ColorReset, hr)
	logger.Info().Msg("Application shutting down")
}
