// Package price resolves live prices through ordered per-market source chains
package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
	"github.com/bobmcallan/iacob/internal/models"
)

// DefaultAttemptTimeout bounds a single source attempt.
const DefaultAttemptTimeout = 20 * time.Second

// Resolver tries each configured source for a market in order and returns
// the first positive price. Every failure is isolated to its attempt: an
// error, a timeout or a non-positive value moves on to the next source.
// Prices are never cached.
type Resolver struct {
	chains         map[models.Market][]interfaces.PriceSource
	attemptTimeout time.Duration
	logger         *common.Logger
}

// Option configures the resolver
type Option func(*Resolver)

// WithChain sets the ordered sources for a market. Nil sources are skipped
// so callers can pass optional clients directly.
func WithChain(market models.Market, sources ...interfaces.PriceSource) Option {
	return func(r *Resolver) {
		chain := make([]interfaces.PriceSource, 0, len(sources))
		for _, s := range sources {
			if s != nil {
				chain = append(chain, s)
			}
		}
		r.chains[market] = chain
	}
}

// WithAttemptTimeout sets the per-source timeout
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

// NewResolver creates a resolver with no sources until chains are configured.
func NewResolver(logger *common.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		chains:         make(map[models.Market][]interfaces.PriceSource),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources returns the names of a market's sources in resolution order.
func (r *Resolver) Sources(market models.Market) []string {
	names := make([]string, 0, len(r.chains[market]))
	for _, s := range r.chains[market] {
		names = append(names, s.Name())
	}
	return names
}

// ResolvePrice returns a strictly positive price or a *PriceUnavailableError
// listing every failed attempt.
func (r *Resolver) ResolvePrice(ctx context.Context, ticker string, market models.Market) (decimal.Decimal, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return decimal.Zero, fmt.Errorf("%w: ticker is required", common.ErrInvalidRequest)
	}

	failure := &common.PriceUnavailableError{Ticker: ticker, Market: market.String()}

	for _, source := range r.chains[market] {
		if err := ctx.Err(); err != nil {
			failure.Attempts = append(failure.Attempts, common.SourceError{Source: source.Name(), Err: err})
			break
		}

		price, err := r.attempt(ctx, source, ticker, market)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("ticker", ticker).
				Str("market", market.String()).
				Str("source", source.Name()).
				Msg("Price source failed, trying next")
			failure.Attempts = append(failure.Attempts, common.SourceError{Source: source.Name(), Err: err})
			continue
		}

		r.logger.Info().
			Str("ticker", ticker).
			Str("market", market.String()).
			Str("source", source.Name()).
			Str("price", price.String()).
			Msg("Price resolved")
		return price, nil
	}

	r.logger.Error().
		Str("ticker", ticker).
		Str("market", market.String()).
		Int("attempts", len(failure.Attempts)).
		Msg("All price sources exhausted")
	return decimal.Zero, failure
}

func (r *Resolver) attempt(ctx context.Context, source interfaces.PriceSource, ticker string, market models.Market) (decimal.Decimal, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	price, err := source.Price(attemptCtx, ticker, market)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return decimal.Zero, fmt.Errorf("timed out after %s: %w", r.attemptTimeout, err)
		}
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", price)
	}
	return price, nil
}

// Ensure Resolver implements PriceResolver
var _ interfaces.PriceResolver = (*Resolver)(nil)
