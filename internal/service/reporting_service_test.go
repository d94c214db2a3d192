package service

import (
	"context"
	"errors"
	"testing"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetUserClaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	claimRepo := mocks.NewMockClaimRepository(ctrl)
	svc := NewReportingService(claimRepo)

	userID := uuid.New()
	claims := []domain.ClaimRecord{
		{ID: uuid.New(), UserID: userID, FaucetID: 2, Status: domain.ClaimStatusCompleted, Amount: 0.00152174, USDValue: 3.50},
		{ID: uuid.New(), UserID: userID, FaucetID: 1, Status: domain.ClaimStatusFailed, ErrorKind: domain.ErrorKindExternalFaucet},
	}
	summary := &ports.EarningsSummary{
		TotalClaims:    12,
		TotalUSDEarned: 42.00,
		ClaimsToday:    2,
	}

	claimRepo.EXPECT().ListByUser(gomock.Any(), userID, 25).Return(claims, nil)
	claimRepo.EXPECT().GetEarnings(gomock.Any(), userID).Return(summary, nil)

	history, err := svc.GetUserClaims(context.Background(), userID, 25)
	require.NoError(t, err)
	assert.Len(t, history.Claims, 2)
	assert.Equal(t, int64(12), history.Summary.TotalClaims)
	assert.Equal(t, 42.00, history.Summary.TotalUSDEarned)
}

func TestReportingService_GetUserClaims_DefaultLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	claimRepo := mocks.NewMockClaimRepository(ctrl)
	svc := NewReportingService(claimRepo)

	userID := uuid.New()
	claimRepo.EXPECT().ListByUser(gomock.Any(), userID, defaultClaimListLimit).Return(nil, nil)
	claimRepo.EXPECT().GetEarnings(gomock.Any(), userID).Return(&ports.EarningsSummary{}, nil)

	history, err := svc.GetUserClaims(context.Background(), userID, 0)
	require.NoError(t, err)
	assert.Empty(t, history.Claims)
}

func TestReportingService_GetUserClaims_ClampsOversizedLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	claimRepo := mocks.NewMockClaimRepository(ctrl)
	svc := NewReportingService(claimRepo)

	userID := uuid.New()
	claimRepo.EXPECT().ListByUser(gomock.Any(), userID, defaultClaimListLimit).Return(nil, nil)
	claimRepo.EXPECT().GetEarnings(gomock.Any(), userID).Return(&ports.EarningsSummary{}, nil)

	_, err := svc.GetUserClaims(context.Background(), userID, 10000)
	require.NoError(t, err)
}

func TestReportingService_GetUserClaims_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	claimRepo := mocks.NewMockClaimRepository(ctrl)
	svc := NewReportingService(claimRepo)

	userID := uuid.New()
	claimRepo.EXPECT().ListByUser(gomock.Any(), userID, 10).Return(nil, errors.New("connection refused"))

	history, err := svc.GetUserClaims(context.Background(), userID, 10)
	assert.Nil(t, history)
	assertAppError(t, err, "SYS_001")
}
