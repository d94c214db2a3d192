package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// PriceOracleService implements ports.PriceOracle. A single background
// goroutine (Run) refreshes the quote; readers get lock-free snapshots via
// an atomic pointer swap.
type PriceOracleService struct {
	asset            string
	primary          ports.PriceSource
	fallback         ports.PriceSource
	refreshInterval  time.Duration
	fetchTimeout     time.Duration
	maxQuoteAge      time.Duration
	failureThreshold int

	quote    atomic.Pointer[domain.Quote]
	failures atomic.Int64

	now func() time.Time
	log zerolog.Logger
}

// NewPriceOracle creates a price oracle for one asset. fallback may be nil
// when no secondary provider is configured.
func NewPriceOracle(
	asset string,
	primary ports.PriceSource,
	fallback ports.PriceSource,
	refreshInterval time.Duration,
	fetchTimeout time.Duration,
	maxQuoteAge time.Duration,
	failureThreshold int,
	log zerolog.Logger,
) *PriceOracleService {
	return &PriceOracleService{
		asset:            asset,
		primary:          primary,
		fallback:         fallback,
		refreshInterval:  refreshInterval,
		fetchTimeout:     fetchTimeout,
		maxQuoteAge:      maxQuoteAge,
		failureThreshold: failureThreshold,
		now:              time.Now,
		log:              log,
	}
}

// Run refreshes the quote on a fixed interval until ctx is canceled. It
// performs one refresh immediately so the gateway does not start cold unless
// both providers are down.
func (s *PriceOracleService) Run(ctx context.Context) {
	s.Refresh(ctx)

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh performs one fetch cycle: primary first, fallback on any primary
// failure. A failed cycle leaves the previous quote in place and bumps the
// failure streak; it never clears cached data.
func (s *PriceOracleService) Refresh(ctx context.Context) {
	price, source, err := s.fetchOnce(ctx)
	if err != nil {
		streak := s.failures.Add(1)
		s.log.Warn().
			Err(err).
			Str("asset", s.asset).
			Int64("failure_streak", streak).
			Msg("price refresh failed, keeping previous quote")
		return
	}

	s.failures.Store(0)
	s.quote.Store(&domain.Quote{
		Asset:      s.asset,
		USDPrice:   price,
		ObservedAt: s.now().UTC(),
		Source:     source,
	})

	s.log.Debug().
		Str("asset", s.asset).
		Float64("usd_price", price).
		Str("source", string(source)).
		Msg("quote refreshed")
}

func (s *PriceOracleService) fetchOnce(ctx context.Context) (float64, domain.QuoteSource, error) {
	price, primaryErr := s.fetchFrom(ctx, s.primary)
	if primaryErr == nil {
		return price, domain.QuoteSourcePrimary, nil
	}

	if s.fallback == nil {
		return 0, "", fmt.Errorf("%s: %w", s.primary.Name(), primaryErr)
	}

	s.log.Warn().
		Err(primaryErr).
		Str("provider", s.primary.Name()).
		Msg("primary price source failed, trying fallback")

	price, fallbackErr := s.fetchFrom(ctx, s.fallback)
	if fallbackErr != nil {
		return 0, "", fmt.Errorf("%s: %v; %s: %w",
			s.primary.Name(), primaryErr, s.fallback.Name(), fallbackErr)
	}
	return price, domain.QuoteSourceFallback, nil
}

func (s *PriceOracleService) fetchFrom(ctx context.Context, src ports.PriceSource) (float64, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	price, err := src.FetchPrice(fetchCtx, s.asset)
	if err != nil {
		return 0, err
	}
	// Zero or negative prices are malformed upstream responses, never valid.
	if price <= 0 {
		return 0, fmt.Errorf("malformed price %v from %s", price, src.Name())
	}
	return price, nil
}

// CurrentQuote returns a snapshot of the last good quote with its staleness
// flag resolved at read time. Returns nil before the first successful fetch
// or for an asset the oracle does not track.
func (s *PriceOracleService) CurrentQuote(asset string) *domain.Quote {
	if asset != s.asset {
		return nil
	}
	q := s.quote.Load()
	if q == nil {
		return nil
	}

	snapshot := *q
	snapshot.Stale = snapshot.Age(s.now()) > s.maxQuoteAge ||
		int(s.failures.Load()) >= s.failureThreshold
	return &snapshot
}

// ConsecutiveFailures returns the current refresh failure streak.
func (s *PriceOracleService) ConsecutiveFailures() int {
	return int(s.failures.Load())
}
