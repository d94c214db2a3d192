package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-faucet-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository for payout wallet bindings.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Upsert stores a wallet binding. Last write wins per (user, cryptocurrency).
func (r *WalletRepo) Upsert(ctx context.Context, b *domain.WalletBinding) error {
	query := `INSERT INTO wallets (id, user_id, cryptocurrency, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, cryptocurrency)
		DO UPDATE SET address = EXCLUDED.address, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.UserID, b.Cryptocurrency, b.Address, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet binding: %w", err)
	}
	return nil
}

// GetByUser fetches the binding for one (user, cryptocurrency) pair.
func (r *WalletRepo) GetByUser(ctx context.Context, userID uuid.UUID, cryptocurrency string) (*domain.WalletBinding, error) {
	query := `SELECT id, user_id, cryptocurrency, address, created_at, updated_at
		FROM wallets WHERE user_id = $1 AND cryptocurrency = $2`

	b := &domain.WalletBinding{}
	err := r.pool.QueryRow(ctx, query, userID, cryptocurrency).Scan(
		&b.ID, &b.UserID, &b.Cryptocurrency, &b.Address, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet binding: %w", err)
	}
	return b, nil
}

// ListByUser fetches all of a user's wallet bindings.
func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletBinding, error) {
	query := `SELECT id, user_id, cryptocurrency, address, created_at, updated_at
		FROM wallets WHERE user_id = $1 ORDER BY cryptocurrency`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallet bindings: %w", err)
	}
	defer rows.Close()

	var bindings []domain.WalletBinding
	for rows.Next() {
		var b domain.WalletBinding
		if err := rows.Scan(&b.ID, &b.UserID, &b.Cryptocurrency, &b.Address, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet binding row: %w", err)
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet binding rows: %w", err)
	}
	return bindings, nil
}
