package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const claimIdempotencyTTL = 24 * time.Hour

// ClaimServiceImpl implements ports.ClaimService. Per (user, faucet) the
// whole eligibility-dispatch-record pipeline runs inside an in-process
// critical section, so concurrent requests cannot both pass the cooldown
// check. The unique ledger constraint on (user, faucet, request id) is the
// cross-instance backstop.
type ClaimServiceImpl struct {
	claimRepo  ports.ClaimRepository
	walletRepo ports.WalletRepository
	idempCache ports.IdempotencyCache
	oracle     ports.PriceOracle
	valuator   ports.Valuator
	guard      ports.EligibilityGuard
	adapters   map[string]ports.FaucetAdapter // keyed by faucet type
	transactor ports.DBTransactor
	auditSvc   ports.AuditService
	asset      string
	usdTarget  float64
	locks      *claimLocks
	now        func() time.Time
	log        zerolog.Logger
}

// NewClaimService creates a new ClaimServiceImpl. asset and usdTarget drive
// the value-derived faucets; fixed-amount faucets ignore them.
func NewClaimService(
	claimRepo ports.ClaimRepository,
	walletRepo ports.WalletRepository,
	idempCache ports.IdempotencyCache,
	oracle ports.PriceOracle,
	valuator ports.Valuator,
	guard ports.EligibilityGuard,
	adapters map[string]ports.FaucetAdapter,
	transactor ports.DBTransactor,
	auditSvc ports.AuditService,
	asset string,
	usdTarget float64,
	log zerolog.Logger,
) *ClaimServiceImpl {
	return &ClaimServiceImpl{
		claimRepo:  claimRepo,
		walletRepo: walletRepo,
		idempCache: idempCache,
		oracle:     oracle,
		valuator:   valuator,
		guard:      guard,
		adapters:   adapters,
		transactor: transactor,
		auditSvc:   auditSvc,
		asset:      asset,
		usdTarget:  usdTarget,
		locks:      newClaimLocks(),
		now:        time.Now,
		log:        log,
	}
}

// ProcessClaim runs the claim pipeline. It performs at most one external
// faucet call per invocation: replays of an already-resolved request id
// return the recorded outcome without touching the upstream, and any check
// that fails before dispatch short-circuits with no call at all.
func (s *ClaimServiceImpl) ProcessClaim(ctx context.Context, req ports.ClaimRequest) (*domain.ClaimRecord, error) {
	adapter, ok := s.adapters[req.FaucetType]
	if !ok {
		return nil, apperror.ErrUnknownFaucet(req.FaucetType)
	}
	faucet := adapter.Faucet()

	idempKey := domain.BuildClaimKey(req.UserID, faucet.ID, req.RequestID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.replayCachedClaim(cached)
	}

	// Critical section per (user, faucet). Held across the external call, so
	// it must be an in-process mutex rather than a DB transaction.
	release := s.locks.lock(req.UserID.String() + ":" + strconv.Itoa(faucet.ID))
	defer release()

	// Layer 2: ledger idempotency check
	existing, err := s.claimRepo.GetByRequestID(ctx, req.UserID, faucet.ID, req.RequestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("idempotency lookup: %w", err))
	}
	if existing != nil {
		return existing, s.errorForRecord(existing)
	}

	// Cooldown gate. Runs before valuation and dispatch, so an ineligible
	// request never consumes a price read or an upstream call.
	elig, err := s.guard.CheckEligibility(ctx, req.UserID, faucet.ID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, apperror.ErrCooldownActive(elig.CooldownRemaining)
	}

	address, err := s.resolveWalletAddress(ctx, req, faucet)
	if err != nil {
		return nil, err
	}

	amount, usdValue, err := s.resolveAmount(faucet)
	if err != nil {
		return nil, err
	}

	// Single external dispatch. The adapter never retries internally.
	result := adapter.Claim(ctx, ports.FaucetCall{
		WalletAddress: address,
		Amount:        amount,
	})

	rec := s.buildRecord(req, faucet, amount, usdValue, result)

	if err := s.persistRecord(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateClaim) {
			// Lost a cross-instance race; the winner's record is authoritative.
			return s.loadExistingRecord(ctx, req, faucet.ID)
		}
		return nil, s.handlePersistenceFailure(ctx, req, rec, result, err)
	}

	s.cacheRecord(ctx, idempKey, rec)
	s.auditClaim(ctx, req, rec)

	s.log.Info().
		Str("claim_id", rec.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("faucet", faucet.Type).
		Str("status", string(rec.Status)).
		Float64("amount", rec.Amount).
		Bool("ambiguous", rec.Ambiguous).
		Msg("claim resolved")

	return rec, s.errorForRecord(rec)
}

// resolveWalletAddress picks the payout address for the dispatch. An inline
// address on the request wins and is stored as the new binding for the
// faucet's cryptocurrency; otherwise the existing binding is used.
func (s *ClaimServiceImpl) resolveWalletAddress(ctx context.Context, req ports.ClaimRequest, faucet domain.Faucet) (string, error) {
	if req.WalletAddress != "" {
		now := s.now().UTC()
		binding := &domain.WalletBinding{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Cryptocurrency: faucet.Type,
			Address:        req.WalletAddress,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.walletRepo.Upsert(ctx, binding); err != nil {
			return "", apperror.ErrDatabaseError(fmt.Errorf("upsert wallet binding: %w", err))
		}
		return req.WalletAddress, nil
	}

	wallet, err := s.walletRepo.GetByUser(ctx, req.UserID, faucet.Type)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("load wallet binding: %w", err))
	}
	if wallet == nil {
		return "", apperror.Validation(fmt.Sprintf("no %s wallet bound for this account and no wallet_address provided", faucet.Type))
	}
	return wallet.Address, nil
}

// resolveAmount computes the dispatch amount before any external call.
// Value-derived faucets require a fresh quote; fixed-amount faucets use the
// quote only to annotate the USD value and work fine without one.
func (s *ClaimServiceImpl) resolveAmount(faucet domain.Faucet) (amount, usdValue float64, err error) {
	quote := s.oracle.CurrentQuote(s.asset)

	if faucet.ValuationMode == domain.ValuationUSDTargetDerived {
		amount, err = s.valuator.DeriveAmount(s.usdTarget, quote)
		if err != nil {
			return 0, 0, err
		}
		return amount, s.usdTarget, nil
	}

	amount = faucet.FixedAmount
	if quote != nil && !quote.Stale && faucet.Symbol == assetSymbol(s.asset) {
		usdValue = domain.RoundAmount(amount * quote.USDPrice)
	}
	return amount, usdValue, nil
}

// assetSymbol maps the oracle asset id to its ticker for USD annotation.
func assetSymbol(asset string) string {
	switch asset {
	case "ethereum":
		return "ETH"
	case "bitcoin":
		return "BTC"
	default:
		return ""
	}
}

func (s *ClaimServiceImpl) buildRecord(req ports.ClaimRequest, faucet domain.Faucet, amount, usdValue float64, result domain.ClaimResult) *domain.ClaimRecord {
	rec := &domain.ClaimRecord{
		ID:        uuid.New(),
		UserID:    req.UserID,
		FaucetID:  faucet.ID,
		RequestID: req.RequestID,
		ClaimedAt: s.now().UTC(),
	}

	if result.Outcome == domain.ClaimOutcomeSuccess {
		rec.Status = domain.ClaimStatusCompleted
		rec.Amount = amount
		rec.USDValue = usdValue
		if result.Amount > 0 {
			// Trust the upstream-reported payout when it provides one, and
			// rescale the USD figure so it matches what was actually paid.
			reported := domain.RoundAmount(result.Amount)
			if amount > 0 && reported != amount {
				rec.USDValue = domain.RoundAmount(usdValue * reported / amount)
			}
			rec.Amount = reported
		}
		if result.ExternalRef != "" {
			ref := result.ExternalRef
			rec.ExternalRef = &ref
		}
		return rec
	}

	rec.Status = domain.ClaimStatusFailed
	rec.ErrorKind = result.ErrorKind
	rec.ErrorDetail = result.ErrorDetail
	rec.Ambiguous = result.Ambiguous
	return rec
}

func (s *ClaimServiceImpl) persistRecord(ctx context.Context, rec *domain.ClaimRecord) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.claimRepo.Create(ctx, dbTx, rec); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// handlePersistenceFailure deals with a ledger write that failed after the
// external call already ran. When that call succeeded the user received
// funds we could not record, so the failure is logged loudly and queued for
// reconciliation; nothing ever re-dispatches the upstream call.
func (s *ClaimServiceImpl) handlePersistenceFailure(ctx context.Context, req ports.ClaimRequest, rec *domain.ClaimRecord, result domain.ClaimResult, err error) error {
	if result.Outcome != domain.ClaimOutcomeSuccess {
		return apperror.ErrDatabaseError(fmt.Errorf("record failed claim: %w", err))
	}

	s.log.Error().
		Err(err).
		Str("user_id", req.UserID.String()).
		Int("faucet_id", rec.FaucetID).
		Str("request_id", req.RequestID).
		Str("external_ref", result.ExternalRef).
		Float64("amount", rec.Amount).
		Msg("CLAIM DISPENSED BUT NOT RECORDED, manual reconciliation required")

	details, _ := json.Marshal(map[string]any{
		"request_id":   req.RequestID,
		"faucet_id":    rec.FaucetID,
		"amount":       rec.Amount,
		"external_ref": result.ExternalRef,
	})
	userID := req.UserID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       domain.AuditActionPersistenceFailure,
		ResourceType: "claim",
		ResourceID:   rec.ID.String(),
		Details:      string(details),
		IPAddress:    req.ClientIP,
		CreatedAt:    s.now().UTC(),
	})

	return apperror.ErrPersistenceFailure(err)
}

func (s *ClaimServiceImpl) loadExistingRecord(ctx context.Context, req ports.ClaimRequest, faucetID int) (*domain.ClaimRecord, error) {
	existing, err := s.claimRepo.GetByRequestID(ctx, req.UserID, faucetID, req.RequestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load existing claim: %w", err))
	}
	if existing == nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("duplicate claim reported but record missing"))
	}
	return existing, s.errorForRecord(existing)
}

// cacheRecord stores the resolved record in Redis (best-effort).
func (s *ClaimServiceImpl) cacheRecord(ctx context.Context, key string, rec *domain.ClaimRecord) {
	respJSON, err := json.Marshal(rec)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal claim for cache")
		return
	}
	if err := s.idempCache.Set(ctx, key, respJSON, claimIdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache claim in redis")
	}
}

func (s *ClaimServiceImpl) auditClaim(ctx context.Context, req ports.ClaimRequest, rec *domain.ClaimRecord) {
	action := domain.AuditActionClaim
	if rec.Ambiguous {
		action = domain.AuditActionClaimAmbiguous
	}
	userID := req.UserID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       action,
		ResourceType: "claim",
		ResourceID:   rec.ID.String(),
		IPAddress:    req.ClientIP,
		CreatedAt:    s.now().UTC(),
	})
}

// replayCachedClaim deserializes a cached record and reproduces the original
// response, error included.
func (s *ClaimServiceImpl) replayCachedClaim(data []byte) (*domain.ClaimRecord, error) {
	rec := &domain.ClaimRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached claim: %w", err))
	}
	return rec, s.errorForRecord(rec)
}

// errorForRecord maps a failed record back to the error its first resolution
// produced, so idempotent replays answer identically.
func (s *ClaimServiceImpl) errorForRecord(rec *domain.ClaimRecord) error {
	if rec.Completed() {
		return nil
	}
	switch rec.ErrorKind {
	case domain.ErrorKindAmbiguous:
		return apperror.ErrAmbiguousOutcome()
	case domain.ErrorKindPriceUnavailable:
		return apperror.ErrPriceUnavailable()
	default:
		return apperror.ErrExternalFaucet(rec.ErrorDetail)
	}
}
