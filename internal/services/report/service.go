// Package report renders run artifacts from the portfolio: currently the
// cash balance chart written after each session.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// Service renders reports from the portfolio service.
type Service struct {
	portfolio interfaces.PortfolioService
	logger    *common.Logger
	now       func() time.Time
}

// NewService creates a report service.
func NewService(portfolio interfaces.PortfolioService, logger *common.Logger) *Service {
	return &Service{portfolio: portfolio, logger: logger, now: time.Now}
}

// WriteCashChart renders the market's cash chart to path. A portfolio with
// no trades has nothing to plot and is skipped.
func (s *Service) WriteCashChart(ctx context.Context, market models.Market, path string) error {
	if path == "" {
		return nil
	}

	p, err := s.portfolio.GetPortfolio(ctx, market)
	if err != nil {
		return fmt.Errorf("failed to load portfolio for chart: %w", err)
	}
	if len(p.History) == 0 {
		s.logger.Info().Str("market", market.String()).Msg("No trades yet, skipping cash chart")
		return nil
	}

	png, err := RenderCashChart(market, CashSeries(p, s.now()))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("failed to write chart %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Int("points", len(p.History)+2).Msg("Cash chart written")
	return nil
}
