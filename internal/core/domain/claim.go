package domain

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateClaim is returned by the ledger when a record with the same
// (user, faucet, request id) already exists. Callers resolve it by loading
// the existing record.
var ErrDuplicateClaim = errors.New("claim already recorded for this request id")

// AmountDecimals is the precision claim amounts are rounded to.
const AmountDecimals = 8

// RoundAmount rounds a crypto amount to the canonical precision.
func RoundAmount(v float64) float64 {
	const shift = 1e8
	return math.Round(v*shift) / shift
}

// ClaimOutcome is the canonical result classification of a dispatched claim.
type ClaimOutcome string

const (
	ClaimOutcomeSuccess ClaimOutcome = "success"
	ClaimOutcomeFailure ClaimOutcome = "failure"
)

// ClaimStatus is the persisted lifecycle state of a claim record.
type ClaimStatus string

const (
	ClaimStatusCompleted ClaimStatus = "completed"
	ClaimStatusFailed    ClaimStatus = "failed"
)

// ErrorKind classifies claim failures in a machine-readable way.
type ErrorKind string

const (
	ErrorKindValidation       ErrorKind = "validation_error"
	ErrorKindCooldownActive   ErrorKind = "cooldown_active"
	ErrorKindPriceUnavailable ErrorKind = "price_unavailable"
	ErrorKindExternalFaucet   ErrorKind = "external_faucet_error"
	ErrorKindAmbiguous        ErrorKind = "ambiguous_outcome"
	ErrorKindPersistence      ErrorKind = "persistence_error"
)

// ClaimResult is the adapter-produced normalization of an external faucet
// response. Every adapter maps its upstream's idiosyncratic shape into this.
type ClaimResult struct {
	Outcome     ClaimOutcome `json:"outcome"`
	Amount      float64      `json:"amount"`
	USDValue    float64      `json:"usd_value"`
	ExternalRef string       `json:"external_ref,omitempty"` // tx hash or equivalent
	ErrorKind   ErrorKind    `json:"error_kind,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
	// Ambiguous marks results where the upstream call may have completed
	// even though we observed a failure (e.g. timeout after send).
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// ClaimRecord is the append-only ledger entry for one resolved claim attempt.
// Records are never mutated after creation; both completed and failed
// attempts count toward the cooldown.
type ClaimRecord struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	FaucetID    int         `json:"faucet_id"`
	RequestID   string      `json:"request_id"`
	Amount      float64     `json:"amount"`
	USDValue    float64     `json:"usd_value"`
	ExternalRef *string     `json:"external_ref,omitempty"`
	Status      ClaimStatus `json:"status"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
	Ambiguous   bool        `json:"ambiguous"` // flagged for manual reconciliation
	ClaimedAt   time.Time   `json:"claimed_at"`
}

// Completed reports whether the claim resolved successfully.
func (r *ClaimRecord) Completed() bool {
	return r.Status == ClaimStatusCompleted
}

// BuildClaimKey constructs the idempotency key for a claim request.
func BuildClaimKey(userID uuid.UUID, faucetID int, requestID string) string {
	return userID.String() + ":" + strconv.Itoa(faucetID) + ":" + requestID
}
