// Package holdings persists the local per-market portfolio snapshot as JSON
package holdings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
	"github.com/bobmcallan/iacob/internal/storage/jsonfile"
)

// snapshot is the on-disk document. History is always written empty: the
// ledger is the source of truth for trades and the field is kept only for
// compatibility with existing files.
type snapshot struct {
	Cash     float64            `json:"cash"`
	Holdings map[string]float64 `json:"holdings"`
	History  []any              `json:"history"`
}

// Store implements interfaces.HoldingsStore over one JSON file per market.
type Store struct {
	path   func(models.Market) string
	logger *common.Logger
}

// NewStore creates a Store. path maps a market to its snapshot file.
func NewStore(path func(models.Market) string, logger *common.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the snapshot for a market. A missing file is an empty
// portfolio so a first run can start from nothing.
func (s *Store) Load(ctx context.Context, market models.Market) (*models.Portfolio, error) {
	path := s.path(market)

	var doc snapshot
	if err := jsonfile.Read(path, &doc); err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			s.logger.Info().Str("market", market.String()).Str("path", path).Msg("No holdings snapshot, starting empty")
			return models.NewPortfolio(market), nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrHoldingsStore, err)
	}

	p := models.NewPortfolio(market)
	p.Cash = decimal.NewFromFloat(doc.Cash)
	for ticker, shares := range doc.Holdings {
		if math.IsNaN(shares) || math.IsInf(shares, 0) || shares < 0 {
			return nil, fmt.Errorf("%w: invalid quantity %v for %s in %s", common.ErrHoldingsStore, shares, ticker, path)
		}
		if shares == 0 {
			continue
		}
		p.Holdings[ticker] = shares
	}

	s.logger.Debug().Str("market", market.String()).Int("positions", len(p.Holdings)).Msg("Holdings snapshot loaded")
	return p, nil
}

// Save writes the whole snapshot atomically with an empty history.
func (s *Store) Save(ctx context.Context, portfolio *models.Portfolio) error {
	path := s.path(portfolio.Market)

	doc := snapshot{
		Cash:     common.RoundMoney(portfolio.Cash).InexactFloat64(),
		Holdings: make(map[string]float64, len(portfolio.Holdings)),
		History:  []any{},
	}
	for ticker, shares := range portfolio.Holdings {
		if shares > 0 {
			doc.Holdings[ticker] = shares
		}
	}

	if err := jsonfile.Write(path, doc); err != nil {
		return fmt.Errorf("%w: %v", common.ErrHoldingsStore, err)
	}

	s.logger.Debug().Str("market", portfolio.Market.String()).Str("path", path).Int("positions", len(doc.Holdings)).Msg("Holdings snapshot saved")
	return nil
}

// Ensure Store implements HoldingsStore
var _ interfaces.HoldingsStore = (*Store)(nil)
