package ports

import (
	"context"
	"time"

	"crypto-faucet-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// PriceSource fetches a spot price for an asset from one upstream provider.
type PriceSource interface {
	// FetchPrice returns the USD price. A zero or negative price from the
	// upstream is treated as a malformed response and returned as an error.
	FetchPrice(ctx context.Context, asset string) (float64, error)
	// Name identifies the provider (e.g., "coingecko", "coinmarketcap").
	Name() string
}

// PriceOracle exposes the most recent successfully fetched quote.
type PriceOracle interface {
	// CurrentQuote returns the cached quote with its staleness flag set, or
	// nil when no fetch has ever succeeded.
	CurrentQuote(asset string) *domain.Quote
	// ConsecutiveFailures returns the current refresh failure streak.
	ConsecutiveFailures() int
}

// Valuator derives claim amounts from a USD target and the current quote.
type Valuator interface {
	// DeriveAmount computes usdTarget / price rounded to 8 decimals. Returns
	// ErrPriceUnavailable when the quote is nil or stale.
	DeriveAmount(usdTarget float64, quote *domain.Quote) (float64, error)
}

// Eligibility is the outcome of a cooldown check.
type Eligibility struct {
	Eligible          bool
	CooldownRemaining time.Duration // zero when eligible
}

// EligibilityGuard enforces per-(user, faucet) claim cooldowns.
type EligibilityGuard interface {
	CheckEligibility(ctx context.Context, userID uuid.UUID, faucetID int) (Eligibility, error)
}

// FaucetCall holds the normalized input for one external faucet claim.
type FaucetCall struct {
	WalletAddress string
	// Amount is the pre-computed claim amount for value-derived faucets.
	// Fixed-amount faucets ignore it and use their configured payout.
	Amount float64
}

// FaucetAdapter wraps one external faucet provider behind a uniform surface.
// Adapters perform exactly one upstream call per Claim invocation; they never
// retry, because a retry after an ambiguous failure could double-claim.
type FaucetAdapter interface {
	Faucet() domain.Faucet
	Claim(ctx context.Context, call FaucetCall) domain.ClaimResult
}

// ClaimRequest holds validated input for claim processing.
type ClaimRequest struct {
	UserID     uuid.UUID
	FaucetType string
	RequestID  string
	// WalletAddress optionally overrides the stored payout binding; when set
	// it is persisted as the new binding for the faucet's cryptocurrency.
	WalletAddress string
	ClientIP      string
}

// ClaimService defines the core claim dispatch business logic.
type ClaimService interface {
	// ProcessClaim runs the full pipeline: idempotency check, eligibility,
	// valuation, external dispatch, and ledger recording. At most one external
	// faucet call happens per invocation.
	ProcessClaim(ctx context.Context, req ClaimRequest) (*domain.ClaimRecord, error)
}

// WalletService defines payout wallet binding logic.
type WalletService interface {
	Bind(ctx context.Context, userID uuid.UUID, cryptocurrency, address, clientIP string) (*domain.WalletBinding, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.WalletBinding, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password, clientIP string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Email    string
	Username string
	Password string
	ClientIP string
}

// ClaimHistory bundles a user's claim list with their earnings summary.
type ClaimHistory struct {
	Claims  []domain.ClaimRecord
	Summary EarningsSummary
}

// ReportingService defines claim history and earnings queries.
type ReportingService interface {
	GetUserClaims(ctx context.Context, userID uuid.UUID, limit int) (*ClaimHistory, error)
}

// AuditService records audited actions without failing the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
