package service

import (
	"context"
	"fmt"

	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"

	"github.com/google/uuid"
)

const defaultClaimListLimit = 50

// reportingService implements ports.ReportingService.
type reportingService struct {
	claimRepo ports.ClaimRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(claimRepo ports.ClaimRepository) ports.ReportingService {
	return &reportingService{claimRepo: claimRepo}
}

// GetUserClaims returns the user's recent claims together with their
// earnings summary.
func (s *reportingService) GetUserClaims(ctx context.Context, userID uuid.UUID, limit int) (*ports.ClaimHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultClaimListLimit
	}

	claims, err := s.claimRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list claims: %w", err))
	}

	summary, err := s.claimRepo.GetEarnings(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load earnings: %w", err))
	}

	return &ports.ClaimHistory{
		Claims:  claims,
		Summary: *summary,
	}, nil
}
