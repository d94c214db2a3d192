package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// ClaimRepo implements ports.ClaimRepository over the append-only claims
// ledger.
type ClaimRepo struct {
	pool Pool
}

// NewClaimRepo creates a new ClaimRepo.
func NewClaimRepo(pool Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

const claimColumns = `id, user_id, faucet_id, request_id, amount, usd_value,
	external_ref, status, error_kind, error_detail, ambiguous, claimed_at`

// Create inserts a claim record within a database transaction. A unique
// violation on (user_id, faucet_id, request_id) means another instance won
// the race for this request id; it surfaces as domain.ErrDuplicateClaim so
// the caller can load the winner's record instead.
func (r *ClaimRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.ClaimRecord) error {
	query := `INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.UserID, rec.FaucetID, rec.RequestID,
		rec.Amount, rec.USDValue, rec.ExternalRef, rec.Status,
		rec.ErrorKind, rec.ErrorDetail, rec.Ambiguous, rec.ClaimedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateClaim
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByRequestID fetches the claim recorded for one idempotency key.
func (r *ClaimRepo) GetByRequestID(ctx context.Context, userID uuid.UUID, faucetID int, requestID string) (*domain.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE user_id = $1 AND faucet_id = $2 AND request_id = $3`

	return r.scanClaim(r.pool.QueryRow(ctx, query, userID, faucetID, requestID))
}

// GetLastClaim fetches the most recent claim for (user, faucet) regardless
// of status.
func (r *ClaimRepo) GetLastClaim(ctx context.Context, userID uuid.UUID, faucetID int) (*domain.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE user_id = $1 AND faucet_id = $2
		ORDER BY claimed_at DESC LIMIT 1`

	return r.scanClaim(r.pool.QueryRow(ctx, query, userID, faucetID))
}

// ListByUser fetches a user's claims, newest first.
func (r *ClaimRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ClaimRecord, error) {
	query := `SELECT ` + claimColumns + ` FROM claims
		WHERE user_id = $1 ORDER BY claimed_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.ClaimRecord
	for rows.Next() {
		var rec domain.ClaimRecord
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.FaucetID, &rec.RequestID,
			&rec.Amount, &rec.USDValue, &rec.ExternalRef, &rec.Status,
			&rec.ErrorKind, &rec.ErrorDetail, &rec.Ambiguous, &rec.ClaimedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}
		claims = append(claims, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}
	return claims, nil
}

// GetEarnings aggregates a user's completed claims.
func (r *ClaimRepo) GetEarnings(ctx context.Context, userID uuid.UUID) (*ports.EarningsSummary, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE status = 'completed') AS total_claims,
		COALESCE(SUM(usd_value) FILTER (WHERE status = 'completed'), 0) AS total_usd,
		COUNT(*) FILTER (WHERE status = 'completed' AND claimed_at >= date_trunc('day', now())) AS claims_today
		FROM claims WHERE user_id = $1`

	summary := &ports.EarningsSummary{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&summary.TotalClaims, &summary.TotalUSDEarned, &summary.ClaimsToday,
	)
	if err != nil {
		return nil, fmt.Errorf("get earnings: %w", err)
	}
	return summary, nil
}

// scanClaim is a helper to scan a single row into a ClaimRecord.
func (r *ClaimRepo) scanClaim(row pgx.Row) (*domain.ClaimRecord, error) {
	rec := &domain.ClaimRecord{}
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FaucetID, &rec.RequestID,
		&rec.Amount, &rec.USDValue, &rec.ExternalRef, &rec.Status,
		&rec.ErrorKind, &rec.ErrorDetail, &rec.Ambiguous, &rec.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	return rec, nil
}
