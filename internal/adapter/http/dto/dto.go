package dto

import (
	"time"

	"crypto-faucet-gateway/internal/core/domain"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// ClaimRequest is the request body for dispatching a faucet claim.
// RequestID is the caller-chosen idempotency key; when omitted the server
// generates one, which makes the request non-replayable. WalletAddress is
// optional when a binding already exists for the faucet's cryptocurrency;
// when present it becomes the new stored binding.
type ClaimRequest struct {
	FaucetType    string `json:"faucet_type" binding:"required,max=30,safe_id"`
	RequestID     string `json:"request_id" binding:"omitempty,max=100,safe_id"`
	WalletAddress string `json:"wallet_address" binding:"omitempty,min=10,max=128,safe_id"`
}

// WalletBindRequest is the request body for binding a payout address.
type WalletBindRequest struct {
	Cryptocurrency string `json:"cryptocurrency" binding:"required,max=30,safe_id"`
	Address        string `json:"address" binding:"required,min=10,max=128,safe_id"`
}

// ClaimResponse is the API shape of one claim ledger record.
type ClaimResponse struct {
	ID          string  `json:"id"`
	FaucetID    int     `json:"faucet_id"`
	RequestID   string  `json:"request_id"`
	Amount      float64 `json:"amount"`
	USDValue    float64 `json:"usd_value,omitempty"`
	ExternalRef *string `json:"external_ref,omitempty"`
	Status      string  `json:"status"`
	ErrorKind   string  `json:"error_kind,omitempty"`
	ErrorDetail string  `json:"error_detail,omitempty"`
	Ambiguous   bool    `json:"ambiguous,omitempty"`
	ClaimedAt   string  `json:"claimed_at"`
}

// FromClaimRecord maps a ledger record to its API shape.
func FromClaimRecord(rec *domain.ClaimRecord) ClaimResponse {
	return ClaimResponse{
		ID:          rec.ID.String(),
		FaucetID:    rec.FaucetID,
		RequestID:   rec.RequestID,
		Amount:      rec.Amount,
		USDValue:    rec.USDValue,
		ExternalRef: rec.ExternalRef,
		Status:      string(rec.Status),
		ErrorKind:   string(rec.ErrorKind),
		ErrorDetail: rec.ErrorDetail,
		Ambiguous:   rec.Ambiguous,
		ClaimedAt:   rec.ClaimedAt.UTC().Format(time.RFC3339),
	}
}

// EarningsSummaryResponse aggregates a user's claim history.
type EarningsSummaryResponse struct {
	TotalClaims    int64   `json:"total_claims"`
	TotalUSDEarned float64 `json:"total_usd_earned"`
	ClaimsToday    int64   `json:"claims_today"`
}

// ClaimListResponse wraps a user's claim history with its summary.
type ClaimListResponse struct {
	Items   []ClaimResponse         `json:"items"`
	Summary EarningsSummaryResponse `json:"summary"`
}

// PriceResponse is the API shape of the oracle's current quote.
type PriceResponse struct {
	Asset      string  `json:"asset"`
	USDPrice   float64 `json:"usd_price"`
	Source     string  `json:"source"`
	ObservedAt string  `json:"observed_at"`
	Stale      bool    `json:"stale"`
}

// FromQuote maps an oracle quote to its API shape.
func FromQuote(q *domain.Quote) PriceResponse {
	return PriceResponse{
		Asset:      q.Asset,
		USDPrice:   q.USDPrice,
		Source:     string(q.Source),
		ObservedAt: q.ObservedAt.UTC().Format(time.RFC3339),
		Stale:      q.Stale,
	}
}

// FaucetResponse is one entry of the faucet catalog.
type FaucetResponse struct {
	ID              int     `json:"id"`
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	CooldownSeconds int     `json:"cooldown_seconds"`
	ValuationMode   string  `json:"valuation_mode"`
	FixedAmount     float64 `json:"fixed_amount,omitempty"`
}

// FromFaucet maps faucet reference data to its API shape.
func FromFaucet(f domain.Faucet) FaucetResponse {
	return FaucetResponse{
		ID:              f.ID,
		Type:            f.Type,
		Name:            f.Name,
		Symbol:          f.Symbol,
		CooldownSeconds: f.CooldownSeconds,
		ValuationMode:   string(f.ValuationMode),
		FixedAmount:     f.FixedAmount,
	}
}

// WalletResponse is the API shape of one wallet binding.
type WalletResponse struct {
	Cryptocurrency string `json:"cryptocurrency"`
	Address        string `json:"address"`
	UpdatedAt      string `json:"updated_at"`
}

// FromWalletBinding maps a wallet binding to its API shape.
func FromWalletBinding(w *domain.WalletBinding) WalletResponse {
	return WalletResponse{
		Cryptocurrency: w.Cryptocurrency,
		Address:        w.Address,
		UpdatedAt:      w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
