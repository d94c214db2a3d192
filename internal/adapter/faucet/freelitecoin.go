package faucet

import (
	"context"
	"encoding/json"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FreeLitecoinAdapter claims from the FreeLitecoin.com faucet.
type FreeLitecoinAdapter struct {
	faucet domain.Faucet
	core   httpCore
}

// NewFreeLitecoinAdapter creates the litecoin faucet adapter.
func NewFreeLitecoinAdapter(faucet domain.Faucet, cfg config.FaucetConfig, log zerolog.Logger) *FreeLitecoinAdapter {
	return &FreeLitecoinAdapter{
		faucet: faucet,
		core:   newHTTPCore(cfg.Endpoint, cfg.APIKey, cfg.CallTimeout, cfg.RatePerMinute, log),
	}
}

// Faucet implements ports.FaucetAdapter.
func (a *FreeLitecoinAdapter) Faucet() domain.Faucet { return a.faucet }

// Claim implements ports.FaucetAdapter.
func (a *FreeLitecoinAdapter) Claim(ctx context.Context, call ports.FaucetCall) domain.ClaimResult {
	raw, fail := a.core.post(ctx, map[string]string{
		"ltc_address": call.WalletAddress,
	})
	if fail != nil {
		return *fail
	}

	var resp struct {
		OK            bool    `json:"ok"`
		Amount        float64 `json:"amount"`
		TransactionID string  `json:"transaction_id"`
		Error         string  `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return malformed(err)
	}
	if !resp.OK {
		return rejected(resp.Error)
	}

	amount := resp.Amount
	if amount <= 0 {
		amount = a.faucet.FixedAmount
	}
	return success(amount, resp.TransactionID)
}
