package integration

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Claim Repo ---

type inMemoryClaimRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.ClaimRecord // keyed by (user, faucet, request id)
}

func newInMemoryClaimRepo() *inMemoryClaimRepo {
	return &inMemoryClaimRepo{records: make(map[string]*domain.ClaimRecord)}
}

func (r *inMemoryClaimRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.ClaimRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.BuildClaimKey(rec.UserID, rec.FaucetID, rec.RequestID)
	if _, exists := r.records[key]; exists {
		// Mirrors the unique (user_id, faucet_id, request_id) constraint.
		return domain.ErrDuplicateClaim
	}
	cp := *rec
	r.records[key] = &cp
	return nil
}

func (r *inMemoryClaimRepo) GetByRequestID(ctx context.Context, userID uuid.UUID, faucetID int, requestID string) (*domain.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[domain.BuildClaimKey(userID, faucetID, requestID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryClaimRepo) GetLastClaim(ctx context.Context, userID uuid.UUID, faucetID int) (*domain.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last *domain.ClaimRecord
	for _, rec := range r.records {
		if rec.UserID != userID || rec.FaucetID != faucetID {
			continue
		}
		if last == nil || rec.ClaimedAt.After(last.ClaimedAt) {
			last = rec
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *inMemoryClaimRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ClaimRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClaimedAt.After(result[j].ClaimedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryClaimRepo) GetEarnings(ctx context.Context, userID uuid.UUID) (*ports.EarningsSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary := &ports.EarningsSummary{}
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	for _, rec := range r.records {
		if rec.UserID != userID || rec.Status != domain.ClaimStatusCompleted {
			continue
		}
		summary.TotalClaims++
		summary.TotalUSDEarned += rec.USDValue
		if !rec.ClaimedAt.Before(dayStart) {
			summary.ClaimsToday++
		}
	}
	return summary, nil
}

// count returns the total number of ledger records (test inspection only).
func (r *inMemoryClaimRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu       sync.RWMutex
	bindings map[string]*domain.WalletBinding // keyed by user:cryptocurrency
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{bindings: make(map[string]*domain.WalletBinding)}
}

func walletKey(userID uuid.UUID, cryptocurrency string) string {
	return userID.String() + ":" + cryptocurrency
}

func (r *inMemoryWalletRepo) Upsert(ctx context.Context, binding *domain.WalletBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *binding
	r.bindings[walletKey(binding.UserID, binding.Cryptocurrency)] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUser(ctx context.Context, userID uuid.UUID, cryptocurrency string) (*domain.WalletBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[walletKey(userID, cryptocurrency)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryWalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletBinding
	for _, b := range r.bindings {
		if b.UserID == userID {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Cryptocurrency < result[j].Cryptocurrency
	})
	return result, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
