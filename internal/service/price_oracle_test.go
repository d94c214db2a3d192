package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupOracle(t *testing.T) (*PriceOracleService, *mocks.MockPriceSource, *mocks.MockPriceSource, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockPriceSource(ctrl)
	fallback := mocks.NewMockPriceSource(ctrl)
	primary.EXPECT().Name().Return("coingecko").AnyTimes()
	fallback.EXPECT().Name().Return("coinmarketcap").AnyTimes()

	oracle := NewPriceOracle(
		"ethereum", primary, fallback,
		60*time.Second, 5*time.Second, 5*time.Minute, 3,
		zerolog.Nop(),
	)
	return oracle, primary, fallback, ctrl
}

func TestPriceOracle_Refresh_PrimarySuccess(t *testing.T) {
	oracle, primary, _, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2300.00, nil)

	oracle.Refresh(context.Background())

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.Equal(t, 2300.00, quote.USDPrice)
	assert.Equal(t, domain.QuoteSourcePrimary, quote.Source)
	assert.False(t, quote.Stale)
	assert.Zero(t, oracle.ConsecutiveFailures())
}

func TestPriceOracle_Refresh_FallbackOnPrimaryFailure(t *testing.T) {
	oracle, primary, fallback, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("503 service unavailable"))
	fallback.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2310.50, nil)

	oracle.Refresh(context.Background())

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.Equal(t, 2310.50, quote.USDPrice)
	assert.Equal(t, domain.QuoteSourceFallback, quote.Source)
	assert.False(t, quote.Stale)
}

// A zero price is a malformed upstream response, not a valid quote; the
// oracle must treat it exactly like a fetch failure.
func TestPriceOracle_Refresh_ZeroPriceTreatedAsFailure(t *testing.T) {
	oracle, primary, fallback, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, nil)
	fallback.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2305.00, nil)

	oracle.Refresh(context.Background())

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.Equal(t, domain.QuoteSourceFallback, quote.Source)
}

// When both providers fail the previous quote survives and the failure
// streak grows; the cache is never cleared by a bad cycle.
func TestPriceOracle_Refresh_BothFail_KeepsPreviousQuote(t *testing.T) {
	oracle, primary, fallback, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2300.00, nil)
	oracle.Refresh(context.Background())

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("timeout")).Times(2)
	fallback.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("401 unauthorized")).Times(2)
	oracle.Refresh(context.Background())
	oracle.Refresh(context.Background())

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.Equal(t, 2300.00, quote.USDPrice)
	assert.Equal(t, 2, oracle.ConsecutiveFailures())
	assert.False(t, quote.Stale)
}

func TestPriceOracle_CurrentQuote_StaleAfterFailureStreak(t *testing.T) {
	oracle, primary, fallback, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2300.00, nil)
	oracle.Refresh(context.Background())

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("down")).Times(3)
	fallback.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("down")).Times(3)
	for i := 0; i < 3; i++ {
		oracle.Refresh(context.Background())
	}

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.True(t, quote.Stale)
	assert.Equal(t, 2300.00, quote.USDPrice) // data retained, only flagged
}

func TestPriceOracle_CurrentQuote_StaleAfterMaxAge(t *testing.T) {
	oracle, primary, _, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2300.00, nil)
	oracle.Refresh(context.Background())

	// Shift the clock past the max quote age.
	oracle.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.True(t, quote.Stale)
}

func TestPriceOracle_CurrentQuote_NilBeforeFirstFetch(t *testing.T) {
	oracle, _, _, ctrl := setupOracle(t)
	defer ctrl.Finish()

	assert.Nil(t, oracle.CurrentQuote("ethereum"))
}

func TestPriceOracle_CurrentQuote_UnknownAsset(t *testing.T) {
	oracle, primary, _, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2300.00, nil)
	oracle.Refresh(context.Background())

	assert.Nil(t, oracle.CurrentQuote("dogecoin"))
}

func TestPriceOracle_Refresh_RecoveryResetsStreak(t *testing.T) {
	oracle, primary, fallback, ctrl := setupOracle(t)
	defer ctrl.Finish()

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("down"))
	fallback.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(0.0, errors.New("down"))
	oracle.Refresh(context.Background())
	assert.Equal(t, 1, oracle.ConsecutiveFailures())

	primary.EXPECT().FetchPrice(gomock.Any(), "ethereum").Return(2350.00, nil)
	oracle.Refresh(context.Background())
	assert.Zero(t, oracle.ConsecutiveFailures())

	quote := oracle.CurrentQuote("ethereum")
	require.NotNil(t, quote)
	assert.False(t, quote.Stale)
}
