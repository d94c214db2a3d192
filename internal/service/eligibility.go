package service

import (
	"context"
	"fmt"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// EligibilityGuardService implements ports.EligibilityGuard against the
// claims ledger. The last claim for (user, faucet) starts the cooldown
// window regardless of whether it completed or failed.
type EligibilityGuardService struct {
	claimRepo ports.ClaimRepository
	faucets   map[int]domain.Faucet
	now       func() time.Time
}

// NewEligibilityGuard creates an eligibility guard over the faucet catalog.
func NewEligibilityGuard(claimRepo ports.ClaimRepository, faucets []domain.Faucet) *EligibilityGuardService {
	byID := make(map[int]domain.Faucet, len(faucets))
	for _, f := range faucets {
		byID[f.ID] = f
	}
	return &EligibilityGuardService{
		claimRepo: claimRepo,
		faucets:   byID,
		now:       time.Now,
	}
}

// CheckEligibility reports whether the user may claim from the faucet now.
// The cooldown window is [lastClaim, lastClaim+cooldown): a claim at exactly
// lastClaim+cooldown is eligible.
func (s *EligibilityGuardService) CheckEligibility(ctx context.Context, userID uuid.UUID, faucetID int) (ports.Eligibility, error) {
	faucet, ok := s.faucets[faucetID]
	if !ok {
		return ports.Eligibility{}, apperror.ErrUnknownFaucet(fmt.Sprintf("id %d", faucetID))
	}

	last, err := s.claimRepo.GetLastClaim(ctx, userID, faucetID)
	if err != nil {
		return ports.Eligibility{}, apperror.ErrDatabaseError(fmt.Errorf("load last claim: %w", err))
	}
	if last == nil {
		return ports.Eligibility{Eligible: true}, nil
	}

	elapsed := s.now().Sub(last.ClaimedAt)
	if elapsed >= faucet.Cooldown() {
		return ports.Eligibility{Eligible: true}, nil
	}

	return ports.Eligibility{
		Eligible:          false,
		CooldownRemaining: faucet.Cooldown() - elapsed,
	}, nil
}
