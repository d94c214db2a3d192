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

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	auditSvc   ports.AuditService
	// supported holds the faucet types a wallet may be bound for.
	supported map[string]struct{}
}

// NewWalletService creates a wallet service restricted to the given
// cryptocurrency types.
func NewWalletService(walletRepo ports.WalletRepository, auditSvc ports.AuditService, cryptocurrencies []string) *WalletServiceImpl {
	supported := make(map[string]struct{}, len(cryptocurrencies))
	for _, c := range cryptocurrencies {
		supported[c] = struct{}{}
	}
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		auditSvc:   auditSvc,
		supported:  supported,
	}
}

// Bind stores a payout address for the user; rebinding replaces the
// previous address for that cryptocurrency.
func (s *WalletServiceImpl) Bind(ctx context.Context, userID uuid.UUID, cryptocurrency, address, clientIP string) (*domain.WalletBinding, error) {
	if _, ok := s.supported[cryptocurrency]; !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported cryptocurrency: %s", cryptocurrency))
	}

	now := time.Now().UTC()
	binding := &domain.WalletBinding{
		ID:             uuid.New(),
		UserID:         userID,
		Cryptocurrency: cryptocurrency,
		Address:        address,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.walletRepo.Upsert(ctx, binding); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("upsert wallet binding: %w", err))
	}

	uid := userID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       &uid,
		Action:       domain.AuditActionWalletBind,
		ResourceType: "wallet",
		ResourceID:   binding.ID.String(),
		IPAddress:    clientIP,
		CreatedAt:    now,
	})

	return binding, nil
}

// List returns all wallet bindings for the user.
func (s *WalletServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]domain.WalletBinding, error) {
	bindings, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list wallet bindings: %w", err))
	}
	return bindings, nil
}
