package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/internal/core/ports/mocks"
	"crypto-faucet-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	ethFaucet = domain.Faucet{
		ID:              2,
		Type:            "ethereum",
		Name:            "Free-Ethereum.io",
		Symbol:          "ETH",
		CooldownSeconds: 3600,
		ValuationMode:   domain.ValuationUSDTargetDerived,
	}
	btcFaucet = domain.Faucet{
		ID:              1,
		Type:            "bitcoin",
		Name:            "FreeBitco.in",
		Symbol:          "BTC",
		CooldownSeconds: 3600,
		ValuationMode:   domain.ValuationFixedAmount,
		FixedAmount:     0.00001,
	}
)

type claimTestDeps struct {
	svc        *ClaimServiceImpl
	claimRepo  *mocks.MockClaimRepository
	walletRepo *mocks.MockWalletRepository
	idempCache *mocks.MockIdempotencyCache
	oracle     *mocks.MockPriceOracle
	valuator   *mocks.MockValuator
	guard      *mocks.MockEligibilityGuard
	ethAdapter *mocks.MockFaucetAdapter
	btcAdapter *mocks.MockFaucetAdapter
	transactor *mocks.MockDBTransactor
	auditSvc   *mocks.MockAuditService
	ctrl       *gomock.Controller
}

func setupClaimService(t *testing.T) *claimTestDeps {
	ctrl := gomock.NewController(t)
	d := &claimTestDeps{
		claimRepo:  mocks.NewMockClaimRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		oracle:     mocks.NewMockPriceOracle(ctrl),
		valuator:   mocks.NewMockValuator(ctrl),
		guard:      mocks.NewMockEligibilityGuard(ctrl),
		ethAdapter: mocks.NewMockFaucetAdapter(ctrl),
		btcAdapter: mocks.NewMockFaucetAdapter(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		auditSvc:   mocks.NewMockAuditService(ctrl),
		ctrl:       ctrl,
	}
	d.ethAdapter.EXPECT().Faucet().Return(ethFaucet).AnyTimes()
	d.btcAdapter.EXPECT().Faucet().Return(btcFaucet).AnyTimes()

	adapters := map[string]ports.FaucetAdapter{
		"ethereum": d.ethAdapter,
		"bitcoin":  d.btcAdapter,
	}
	d.svc = NewClaimService(
		d.claimRepo, d.walletRepo, d.idempCache,
		d.oracle, d.valuator, d.guard, adapters,
		d.transactor, d.auditSvc,
		"ethereum", 3.50, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func freshQuote(price float64) *domain.Quote {
	return &domain.Quote{
		Asset:      "ethereum",
		USDPrice:   price,
		ObservedAt: time.Now(),
		Source:     domain.QuoteSourcePrimary,
	}
}

func TestClaimService_ProcessClaim_Success(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(2300.00)

	req := ports.ClaimRequest{
		UserID:     userID,
		FaucetType: "ethereum",
		RequestID:  "req-001",
		ClientIP:   "1.2.3.4",
	}
	idempKey := domain.BuildClaimKey(userID, 2, "req-001")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-001").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.00152174, nil)
	d.ethAdapter.EXPECT().Claim(ctx, ports.FaucetCall{WalletAddress: "0xabc", Amount: 0.00152174}).
		Return(domain.ClaimResult{
			Outcome:     domain.ClaimOutcomeSuccess,
			Amount:      0.00152174,
			ExternalRef: "0xdeadbeef",
		})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	rec, err := d.svc.ProcessClaim(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.ClaimStatusCompleted, rec.Status)
	assert.InDelta(t, 0.00152174, rec.Amount, 1e-12)
	assert.InDelta(t, 3.50, rec.USDValue, 1e-9)
	require.NotNil(t, rec.ExternalRef)
	assert.Equal(t, "0xdeadbeef", *rec.ExternalRef)
	assert.False(t, rec.Ambiguous)
}

func TestClaimService_ProcessClaim_UnknownFaucet(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	rec, err := d.svc.ProcessClaim(context.Background(), ports.ClaimRequest{
		UserID:     uuid.New(),
		FaucetType: "monero",
		RequestID:  "req-002",
	})
	assert.Nil(t, rec)
	assertAppError(t, err, "CLM_004")
}

// Cooldown rejections must never reach the external faucet: no Claim
// expectation is registered on the adapter, so any dispatch fails the test.
func TestClaimService_ProcessClaim_CooldownActive_NoExternalCall(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	idempKey := domain.BuildClaimKey(userID, 2, "req-003")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-003").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{
		Eligible:          false,
		CooldownRemaining: 30 * time.Minute,
	}, nil)

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-003",
	})
	assert.Nil(t, rec)
	assertAppError(t, err, "CLM_001")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, int64(1800), appErr.Details["cooldown_remaining"])
}

// A stale or missing quote blocks value-derived claims before dispatch.
func TestClaimService_ProcessClaim_PriceUnavailable_NoExternalCall(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	idempKey := domain.BuildClaimKey(userID, 2, "req-004")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-004").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(nil)
	d.valuator.EXPECT().DeriveAmount(3.50, nil).Return(0.0, apperror.ErrPriceUnavailable())

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-004",
	})
	assert.Nil(t, rec)
	assertAppError(t, err, "CLM_002")
}

// Fixed-amount faucets dispatch without any quote at all.
func TestClaimService_ProcessClaim_FixedAmount_NoQuoteNeeded(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	idempKey := domain.BuildClaimKey(userID, 1, "req-005")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 1, "req-005").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 1).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "bitcoin").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "bitcoin", Address: "bc1qxyz",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(nil)
	d.btcAdapter.EXPECT().Claim(ctx, ports.FaucetCall{WalletAddress: "bc1qxyz", Amount: 0.00001}).
		Return(domain.ClaimResult{
			Outcome:     domain.ClaimOutcomeSuccess,
			Amount:      0.00001,
			ExternalRef: "txid123",
		})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "bitcoin", RequestID: "req-005",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.00001, rec.Amount, 1e-12)
	assert.Zero(t, rec.USDValue)
}

// A rejected claim is still recorded, so the cooldown applies to it.
func TestClaimService_ProcessClaim_ExternalFailure_Recorded(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(2300.00)
	idempKey := domain.BuildClaimKey(userID, 2, "req-006")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-006").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.00152174, nil)
	d.ethAdapter.EXPECT().Claim(ctx, gomock.Any()).Return(domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeFailure,
		ErrorKind:   domain.ErrorKindExternalFaucet,
		ErrorDetail: "daily limit reached",
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, rec *domain.ClaimRecord) error {
			assert.Equal(t, domain.ClaimStatusFailed, rec.Status)
			assert.Equal(t, domain.ErrorKindExternalFaucet, rec.ErrorKind)
			assert.False(t, rec.Ambiguous)
			return nil
		})
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-006",
	})
	require.NotNil(t, rec)
	assertAppError(t, err, "CLM_003")
	assert.Equal(t, domain.ClaimStatusFailed, rec.Status)
}

// Timeouts after the request may have been delivered resolve as failed but
// ambiguous, and the audit entry switches to the reconciliation action.
func TestClaimService_ProcessClaim_AmbiguousTimeout(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(2300.00)
	idempKey := domain.BuildClaimKey(userID, 2, "req-007")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-007").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.00152174, nil)
	d.ethAdapter.EXPECT().Claim(ctx, gomock.Any()).Return(domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeFailure,
		ErrorKind:   domain.ErrorKindAmbiguous,
		ErrorDetail: "request timed out after 10s",
		Ambiguous:   true,
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionClaimAmbiguous, entry.Action)
	})

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-007",
	})
	require.NotNil(t, rec)
	assertAppError(t, err, "CLM_006")
	assert.True(t, rec.Ambiguous)
}

func TestClaimService_ProcessClaim_IdempotentRedisHit(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	cachedRec := &domain.ClaimRecord{
		ID:        uuid.New(),
		UserID:    userID,
		FaucetID:  2,
		RequestID: "req-cached",
		Status:    domain.ClaimStatusCompleted,
		Amount:    0.00152174,
	}
	cachedJSON, _ := json.Marshal(cachedRec)

	idempKey := domain.BuildClaimKey(userID, 2, "req-cached")
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cachedJSON, nil)

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-cached",
	})
	require.NoError(t, err)
	assert.Equal(t, cachedRec.ID, rec.ID)
}

// A replayed failed claim reproduces the original error, not a new dispatch.
func TestClaimService_ProcessClaim_IdempotentReplayOfFailure(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	existing := &domain.ClaimRecord{
		ID:          uuid.New(),
		UserID:      userID,
		FaucetID:    2,
		RequestID:   "req-replay",
		Status:      domain.ClaimStatusFailed,
		ErrorKind:   domain.ErrorKindExternalFaucet,
		ErrorDetail: "daily limit reached",
	}

	idempKey := domain.BuildClaimKey(userID, 2, "req-replay")
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-replay").Return(existing, nil)

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-replay",
	})
	assert.Equal(t, existing.ID, rec.ID)
	assertAppError(t, err, "CLM_003")
}

// The severe path: funds dispensed upstream but the ledger write failed.
// The claim must surface SYS_002 and queue a reconciliation entry, and must
// never re-dispatch.
func TestClaimService_ProcessClaim_PersistenceFailureAfterSuccess(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(2300.00)
	idempKey := domain.BuildClaimKey(userID, 2, "req-008")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-008").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.00152174, nil)
	d.ethAdapter.EXPECT().Claim(ctx, gomock.Any()).Return(domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeSuccess,
		Amount:      0.00152174,
		ExternalRef: "0xdeadbeef",
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("connection reset"))
	d.auditSvc.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionPersistenceFailure, entry.Action)
	})

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-008",
	})
	assert.Nil(t, rec)
	assertAppError(t, err, "SYS_002")
}

// Losing the cross-instance insert race resolves to the winner's record.
func TestClaimService_ProcessClaim_DuplicateInsertRace(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(2300.00)
	idempKey := domain.BuildClaimKey(userID, 2, "req-009")

	winner := &domain.ClaimRecord{
		ID:        uuid.New(),
		UserID:    userID,
		FaucetID:  2,
		RequestID: "req-009",
		Status:    domain.ClaimStatusCompleted,
	}

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-009").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.00152174, nil)
	d.ethAdapter.EXPECT().Claim(ctx, gomock.Any()).Return(domain.ClaimResult{
		Outcome: domain.ClaimOutcomeSuccess,
		Amount:  0.00152174,
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateClaim)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-009").Return(winner, nil)

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-009",
	})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, rec.ID)
}

// An inline wallet_address dispatches to that address and becomes the new
// stored binding; the repo is never consulted for an existing one.
func TestClaimService_ProcessClaim_InlineWalletAddress(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	idempKey := domain.BuildClaimKey(userID, 1, "req-011")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 1, "req-011").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 1).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, binding *domain.WalletBinding) error {
			assert.Equal(t, userID, binding.UserID)
			assert.Equal(t, "bitcoin", binding.Cryptocurrency)
			assert.Equal(t, "bc1qinline", binding.Address)
			return nil
		})
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(nil)
	d.btcAdapter.EXPECT().Claim(ctx, ports.FaucetCall{WalletAddress: "bc1qinline", Amount: 0.00001}).
		Return(domain.ClaimResult{
			Outcome:     domain.ClaimOutcomeSuccess,
			Amount:      0.00001,
			ExternalRef: "txid456",
		})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID:        userID,
		FaucetType:    "bitcoin",
		RequestID:     "req-011",
		WalletAddress: "bc1qinline",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusCompleted, rec.Status)
}

// When the upstream pays a different amount than dispatched, the recorded
// USD value is rescaled so it matches the recorded amount.
func TestClaimService_ProcessClaim_UpstreamAmountRescalesUSD(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	quote := freshQuote(3500.00)
	idempKey := domain.BuildClaimKey(userID, 2, "req-012")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-012").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(&domain.WalletBinding{
		UserID: userID, Cryptocurrency: "ethereum", Address: "0xabc",
	}, nil)
	d.oracle.EXPECT().CurrentQuote("ethereum").Return(quote)
	d.valuator.EXPECT().DeriveAmount(3.50, quote).Return(0.001, nil)
	// Upstream pays double the dispatched amount.
	d.ethAdapter.EXPECT().Claim(ctx, gomock.Any()).Return(domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeSuccess,
		Amount:      0.002,
		ExternalRef: "0xbeef",
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.claimRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), claimIdempotencyTTL).Return(nil)
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-012",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.002, rec.Amount, 1e-12)
	assert.InDelta(t, 7.00, rec.USDValue, 1e-9)
}

func TestClaimService_ProcessClaim_NoWalletBound(t *testing.T) {
	d := setupClaimService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	idempKey := domain.BuildClaimKey(userID, 2, "req-010")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.claimRepo.EXPECT().GetByRequestID(ctx, userID, 2, "req-010").Return(nil, nil)
	d.guard.EXPECT().CheckEligibility(ctx, userID, 2).Return(ports.Eligibility{Eligible: true}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, userID, "ethereum").Return(nil, nil)

	rec, err := d.svc.ProcessClaim(ctx, ports.ClaimRequest{
		UserID: userID, FaucetType: "ethereum", RequestID: "req-010",
	})
	assert.Nil(t, rec)
	assertAppError(t, err, "VAL_001")
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
