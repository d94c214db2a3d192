package service

import (
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/pkg/apperror"
)

// ValuationCalculator implements ports.Valuator. It is a pure calculation
// with no side effects; staleness is already resolved on the quote by the
// oracle.
type ValuationCalculator struct{}

// NewValuationCalculator creates a new valuation calculator.
func NewValuationCalculator() *ValuationCalculator {
	return &ValuationCalculator{}
}

// DeriveAmount converts a USD target into a crypto amount at the quoted
// price, rounded to the canonical 8 decimals. A nil or stale quote yields
// ErrPriceUnavailable; callers must not dispatch an external claim in that
// case.
func (c *ValuationCalculator) DeriveAmount(usdTarget float64, quote *domain.Quote) (float64, error) {
	if usdTarget <= 0 {
		return 0, apperror.Validation("usd target must be positive")
	}
	if quote == nil || quote.Stale || quote.USDPrice <= 0 {
		return 0, apperror.ErrPriceUnavailable()
	}
	return domain.RoundAmount(usdTarget / quote.USDPrice), nil
}
