package service

import (
	"testing"
	"time"

	"crypto-faucet-gateway/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuationCalculator_DeriveAmount(t *testing.T) {
	calc := NewValuationCalculator()

	tests := []struct {
		name      string
		usdTarget float64
		price     float64
		expected  float64
	}{
		{"coffee at 2300", 3.50, 2300.00, 0.00152174},
		{"coffee at 3500", 3.50, 3500.00, 0.00100000},
		{"high price rounds to 8 decimals", 3.50, 1234.56, 0.00283502},
		{"sub-dollar asset", 3.50, 0.07, 50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := &domain.Quote{
				Asset:      "ethereum",
				USDPrice:   tt.price,
				ObservedAt: time.Now(),
				Source:     domain.QuoteSourcePrimary,
			}
			amount, err := calc.DeriveAmount(tt.usdTarget, quote)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, amount, 1e-9)
		})
	}
}

// Same target, higher price, smaller amount: the derivation is monotonic.
func TestValuationCalculator_DeriveAmount_MonotonicInPrice(t *testing.T) {
	calc := NewValuationCalculator()

	low, err := calc.DeriveAmount(3.50, &domain.Quote{USDPrice: 2000, ObservedAt: time.Now()})
	require.NoError(t, err)
	high, err := calc.DeriveAmount(3.50, &domain.Quote{USDPrice: 4000, ObservedAt: time.Now()})
	require.NoError(t, err)

	assert.Greater(t, low, high)
}

func TestValuationCalculator_DeriveAmount_NilQuote(t *testing.T) {
	calc := NewValuationCalculator()

	amount, err := calc.DeriveAmount(3.50, nil)
	assert.Zero(t, amount)
	assertAppError(t, err, "CLM_002")
}

func TestValuationCalculator_DeriveAmount_StaleQuote(t *testing.T) {
	calc := NewValuationCalculator()

	quote := &domain.Quote{
		Asset:      "ethereum",
		USDPrice:   2300.00,
		ObservedAt: time.Now().Add(-10 * time.Minute),
		Stale:      true,
	}
	amount, err := calc.DeriveAmount(3.50, quote)
	assert.Zero(t, amount)
	assertAppError(t, err, "CLM_002")
}

func TestValuationCalculator_DeriveAmount_InvalidTarget(t *testing.T) {
	calc := NewValuationCalculator()

	_, err := calc.DeriveAmount(0, &domain.Quote{USDPrice: 2300, ObservedAt: time.Now()})
	assertAppError(t, err, "VAL_001")

	_, err = calc.DeriveAmount(-1, &domain.Quote{USDPrice: 2300, ObservedAt: time.Now()})
	assertAppError(t, err, "VAL_001")
}
