package faucet

import (
	"context"
	"encoding/json"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FreeDogeAdapter claims from the FreeDoge.co.in faucet.
type FreeDogeAdapter struct {
	faucet domain.Faucet
	core   httpCore
}

// NewFreeDogeAdapter creates the dogecoin faucet adapter.
func NewFreeDogeAdapter(faucet domain.Faucet, cfg config.FaucetConfig, log zerolog.Logger) *FreeDogeAdapter {
	return &FreeDogeAdapter{
		faucet: faucet,
		core:   newHTTPCore(cfg.Endpoint, cfg.APIKey, cfg.CallTimeout, cfg.RatePerMinute, log),
	}
}

// Faucet implements ports.FaucetAdapter.
func (a *FreeDogeAdapter) Faucet() domain.Faucet { return a.faucet }

// Claim implements ports.FaucetAdapter.
func (a *FreeDogeAdapter) Claim(ctx context.Context, call ports.FaucetCall) domain.ClaimResult {
	raw, fail := a.core.post(ctx, map[string]string{
		"doge_address": call.WalletAddress,
	})
	if fail != nil {
		return *fail
	}

	var resp struct {
		Success bool    `json:"success"`
		Amount  float64 `json:"amount"`
		TxID    string  `json:"txid"`
		Message string  `json:"message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return malformed(err)
	}
	if !resp.Success {
		return rejected(resp.Message)
	}

	amount := resp.Amount
	if amount <= 0 {
		amount = a.faucet.FixedAmount
	}
	return success(amount, resp.TxID)
}
