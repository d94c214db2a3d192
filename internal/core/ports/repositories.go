package ports

import (
	"context"

	"crypto-faucet-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimRepository defines persistence operations for the claims ledger.
// The ledger is append-only: records are inserted once and never mutated.
type ClaimRepository interface {
	// Create inserts a claim record inside a transaction. The unique
	// (user_id, faucet_id, request_id) constraint makes recording idempotent
	// at the database layer.
	Create(ctx context.Context, tx pgx.Tx, rec *domain.ClaimRecord) error
	GetByRequestID(ctx context.Context, userID uuid.UUID, faucetID int, requestID string) (*domain.ClaimRecord, error)
	// GetLastClaim returns the most recent claim for (user, faucet) regardless
	// of status. Failed attempts count toward the cooldown too.
	GetLastClaim(ctx context.Context, userID uuid.UUID, faucetID int) (*domain.ClaimRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ClaimRecord, error)
	GetEarnings(ctx context.Context, userID uuid.UUID) (*EarningsSummary, error)
}

// EarningsSummary holds aggregated claim statistics for a user.
type EarningsSummary struct {
	TotalClaims    int64
	TotalUSDEarned float64
	ClaimsToday    int64
}

// WalletRepository defines persistence for payout wallet bindings.
type WalletRepository interface {
	// Upsert stores a binding; last write wins per (user, cryptocurrency).
	Upsert(ctx context.Context, binding *domain.WalletBinding) error
	GetByUser(ctx context.Context, userID uuid.UUID, cryptocurrency string) (*domain.WalletBinding, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletBinding, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
